package main

import "github.com/tamasfe/courier/cmd/courier/commands"

func main() {
	commands.Execute()
}
