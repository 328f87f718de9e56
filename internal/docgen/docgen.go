package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/tamasfe/courier/cmd/courier/config"
	"github.com/tamasfe/courier/internal/markdown"
	"github.com/tamasfe/courier/pkg/common"
	"github.com/tamasfe/courier/pkg/functions"
)

// section writes the markdown description of a component under
// a top level heading, shifting its own headings one level down.
func section(b *strings.Builder, title string, desc interface{}) {
	md, ok := desc.(common.DescriptionMarkdown)
	if !ok {
		return
	}

	b.WriteString("# " + title + "\n")

	scanner := bufio.NewScanner(bytes.NewBufferString(md.DescriptionMarkdown()))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) != 0 && line[0] == '#' {
			line = "#" + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func write(path, header, md string) {
	err := os.MkdirAll(filepath.Dir(path), os.ModePerm)
	if err != nil {
		panic(err)
	}

	err = os.WriteFile(path, []byte(markdown.GenTOC(header, md)), 0644)
	if err != nil {
		panic(err)
	}
}

func main() {
	var parsersBuilder strings.Builder
	var transformersBuilder strings.Builder
	var generatorsBuilder strings.Builder
	var functionsBuilder strings.Builder

	for _, p := range config.Parsers {
		section(&parsersBuilder, p.Name(), p)
	}

	for _, t := range config.Transformers {
		section(&transformersBuilder, t.Name(), t)
	}

	presets := make(map[string]string, len(config.Generators))
	for _, g := range config.Generators {
		presets[string(g.Preset())] = g.Description()
	}
	generatorsBuilder.WriteString("# Presets\n\n" + markdown.TargetsTable(presets) + "\n")

	for _, g := range config.Generators {
		section(&generatorsBuilder, string(g.Preset())+" "+g.Language(), g)
	}

	for _, p := range functions.Default.Protocols() {
		functionsBuilder.WriteString("# " + string(p) + "\n\n")
		functionsBuilder.WriteString(markdown.FunctionsTable(functions.Default.ForProtocol(p)) + "\n")
	}

	write("./docs/cli/parsers/README.md", "# Parsers\n", parsersBuilder.String())
	write("./docs/cli/transformers/README.md", "# Document transformers\n", transformersBuilder.String())
	write("./docs/cli/generators/README.md", "# Code generators\n", generatorsBuilder.String())
	write("./docs/cli/functions/README.md", "# Function types\n", functionsBuilder.String())
}
