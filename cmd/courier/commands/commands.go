package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tamasfe/courier/cmd/courier/config"
	"github.com/tamasfe/courier/pkg/errs"
	"github.com/tamasfe/courier/pkg/util/cli"
)

var globalOpts = &config.GlobalOptions{}

var version string = "not versioned"

var rootCmd = &cobra.Command{
	Use:           "courier",
	Short:         "Courier generates messaging code from AsyncAPI and Open API contracts",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.Verbose = globalOpts.Verbose
		cli.Silent = globalOpts.Silent

		color.NoColor = globalOpts.NoColors ||
			(!isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()))
	},
}

var versionCmd = &cobra.Command{
	Use:           "version",
	Short:         "Version of Courier",
	Aliases:       []string{"v"},
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "print verbose messages")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Silent, "silent", "s", false, "only print error messages, overwrites verbose")
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.NoColors, "no-colors", "", false, "disable colors in the output messages")

	rootCmd.AddCommand(versionCmd)
}

// Execute executes the commands.
func Execute() {
	// Flags are parsed after the environment, so they take precedence.
	for _, opts := range []interface{}{globalOpts, genOpts} {
		if err := config.LoadEnv(opts); err != nil {
			cli.Failureln(err)
			os.Exit(1)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		cli.Failureln(err)
		cli.Hintln(errs.Help(err))
		os.Exit(1)
	}
}
