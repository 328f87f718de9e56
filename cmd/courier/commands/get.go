package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tamasfe/courier/cmd/courier/config"
	"github.com/tamasfe/courier/pkg/functions"
	"github.com/tamasfe/courier/pkg/util"
	"github.com/tamasfe/courier/pkg/util/cli"
	"gopkg.in/yaml.v3"
)

func init() {
	getCmd := &cobra.Command{
		Use:          "get [target]",
		Short:        "Get available values",
		SilenceUsage: false,
	}

	getOpts := &config.GetOptions{}

	getConfigCmd := &cobra.Command{
		Use:          "configuration",
		Short:        "Provides an example configuration",
		Aliases:      []string{"c", "conf", "config"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if getOpts.OutPath == "" || getOpts.OutPath == "-" {
				cli.Silent = true
			}

			if getOpts.NoComments {
				util.DisableYAMLMarshalComments = true
			}

			configComment := "# Generated config file for Courier, a code generator for AsyncAPI and Open API contracts.\n\n"

			conf := config.DefaultCourierOptions()
			if getOpts.All {
				conf = config.ExampleConfig()
			}

			b, err := marshalYAML(conf)
			if err != nil {
				return err
			}
			cfg := configComment + string(b)

			if getOpts.OutPath == "" || getOpts.OutPath == "-" {
				fmt.Println(cfg)
				return nil
			}

			return writeConfig(getOpts, cfg)
		},
	}

	getConfigCmd.Flags().BoolVarP(&getOpts.NoComments, "no-comments", "", false, "Disables all comments")
	getConfigCmd.Flags().StringVarP(&getOpts.OutPath, "out", "o", "", "the output file")
	getConfigCmd.Flags().BoolVarP(&getOpts.All, "all", "a", false, "include all possible values")
	getConfigCmd.Flags().BoolVarP(&getOpts.Force, "force", "f", false, "force overwriting files")

	getParsersCmd := &cobra.Command{
		Use:          "parsers",
		Short:        "List all parsers",
		Aliases:      []string{"p", "parser", "parse"},
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			printParsers()
		},
	}

	getTransformersCmd := &cobra.Command{
		Use:          "transformers",
		Short:        "List all transformers",
		Aliases:      []string{"t", "trans", "transform"},
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			printTransformers()
		},
	}

	getGeneratorsCmd := &cobra.Command{
		Use:          "generators",
		Short:        "List all generators",
		Aliases:      []string{"g", "gen", "generator", "presets"},
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			printGenerators()
		},
	}

	getFunctionsCmd := &cobra.Command{
		Use:          "functions [protocol]",
		Short:        "List the function types of every protocol, or a single one",
		Aliases:      []string{"f", "func", "function"},
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 1 {
				printFunctions(functions.Default.ForProtocol(functions.Protocol(args[0])))
				return
			}
			printFunctions(functions.Default.Entries())
		},
	}

	getAllCmd := &cobra.Command{
		Use:          "all",
		Short:        "List all components",
		Aliases:      []string{"a"},
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			printParsers()
			fmt.Println()
			printTransformers()
			fmt.Println()
			printGenerators()
			fmt.Println()
			printFunctions(functions.Default.Entries())
		},
	}

	getCmd.AddCommand(getAllCmd)
	getCmd.AddCommand(getFunctionsCmd)
	getCmd.AddCommand(getGeneratorsCmd)
	getCmd.AddCommand(getTransformersCmd)
	getCmd.AddCommand(getParsersCmd)
	getCmd.AddCommand(getConfigCmd)

	rootCmd.AddCommand(getCmd)
}

func writeConfig(getOpts *config.GetOptions, cfg string) error {
	info, err := os.Stat(getOpts.OutPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if info != nil {
		if info.IsDir() {
			return fmt.Errorf("output path should be a file, not a directory")
		}
		if !getOpts.Force {
			return fmt.Errorf("file already exists, use \"-f\" to force overwrite")
		}
	}

	err = os.MkdirAll(filepath.Dir(getOpts.OutPath), os.ModePerm)
	if err != nil {
		return err
	}

	err = os.WriteFile(getOpts.OutPath, []byte(cfg), 0644)
	if err != nil {
		return err
	}

	cli.Successf("%v written.\n", getOpts.OutPath)
	return nil
}

func printParsers() {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)

	cli.Infof("Available parsers:\n")
	for _, p := range config.Parsers {
		fmt.Fprintf(w, "\t%v\t%v\n", p.Name(), p.Description())
	}
	w.Flush()
}

func printTransformers() {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)

	cli.Infof("Available transformers:\n")
	for _, p := range config.Transformers {
		fmt.Fprintf(w, "\t%v\t%v\n", p.Name(), p.Description())
	}
	w.Flush()
}

func printGenerators() {
	cli.Infof("Available generators:\n")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)

	for _, g := range config.Generators {
		fmt.Fprintf(w, "\t%v (%v)\t%v\n", g.Preset(), g.Language(), g.Description())
	}
	w.Flush()
}

func printFunctions(entries []functions.Entry) {
	cli.Infof("Available function types:\n")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)

	for _, e := range entries {
		rr := ""
		if e.RequestReply {
			rr = "request/reply"
		}
		fmt.Fprintf(w, "\t%v\t%v\t%v\t%v\t%v\n", e.Type, e.Protocol, e.Direction, rr, e.Description)
	}
	w.Flush()
}

// marshalYAML formats the output YAML properly.
func marshalYAML(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}

	e := yaml.NewEncoder(buf)

	e.SetIndent(2)

	err := e.Encode(v)
	if err != nil {
		return nil, err
	}

	return []byte(strings.ReplaceAll(buf.String(), "\n\n\n", "\n\n")), nil
}
