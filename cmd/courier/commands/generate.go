package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tamasfe/courier/cmd/courier/config"
	"github.com/tamasfe/courier/cmd/courier/generate"
	"github.com/tamasfe/courier/pkg/util/cli"
)

// DefaultConfigPath is used when no configuration is given and the file exists.
const DefaultConfigPath = "courier.yaml"

var genOpts = &config.GenerateOptions{}

func init() {
	var success bool

	generateCmd := &cobra.Command{
		Use:          "generate [flags] [config]",
		Short:        "Generate code",
		Aliases:      []string{"gen"},
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if success {
				cli.Successln("All done!")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				genOpts.ConfigPath = args[0]
			}

			opts, err := readConfig(genOpts)
			if err != nil {
				return err
			}

			_, err = generate.Generate(context.Background(), genOpts, opts)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}
			success = true
			return nil
		},
	}
	generateCmd.Flags().StringVarP(&genOpts.ConfigPath, "config", "c", "", "path to the configuration file or - for stdin")
	generateCmd.Flags().StringVarP(&genOpts.OutPath, "out", "o", ".", "the output directory")
	generateCmd.Flags().BoolVarP(&genOpts.Yes, "yes", "y", false, "answer to all prompts with the default answers")
	generateCmd.Flags().BoolVarP(&genOpts.Check, "check", "", false, "only check whether the generated files are up to date")
	generateCmd.Flags().IntVarP(&genOpts.Parallelism, "parallelism", "p", 0, "maximum number of generators rendered at the same time, overrides the config")

	rootCmd.AddCommand(generateCmd)
}

func readConfig(genOpts *config.GenerateOptions) (*config.CourierOptions, error) {
	if genOpts.ConfigPath == "" {
		if _, err := os.Stat(DefaultConfigPath); err != nil {
			cli.Warningf("No configuration was given, using the defaults.\n")
			return config.DefaultCourierOptions(), nil
		}
		genOpts.ConfigPath = DefaultConfigPath
	}

	var data []byte

	if genOpts.ConfigPath == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		data = b

		cli.Verboseln("Using config from stdin.")
	} else {
		b, err := os.ReadFile(genOpts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		data = b

		absConfig, err := filepath.Abs(genOpts.ConfigPath)
		if err == nil {
			genOpts.ConfigPath = absConfig
		}

		cli.Verboseln("Using config from \"" + genOpts.ConfigPath + "\".")
	}

	opts, err := config.LoadCourierOptions(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return opts, nil
}
