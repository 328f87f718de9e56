package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-multierror"
	"github.com/tamasfe/courier/cmd/courier/config"
	"github.com/tamasfe/courier/pkg/common"
	"github.com/tamasfe/courier/pkg/generator"
	"github.com/tamasfe/courier/pkg/genfs"
	"github.com/tamasfe/courier/pkg/graph"
	"github.com/tamasfe/courier/pkg/parser"
	"github.com/tamasfe/courier/pkg/spec"
	"github.com/tamasfe/courier/pkg/util/cli"
)

// Generate generate code according to options
func Generate(ctx context.Context, cliOpts *config.GenerateOptions, options *config.CourierOptions) (*graph.Result, error) {
	registry, err := config.NewRegistry()
	if err != nil {
		return nil, err
	}

	normalizeNames(options)

	if cliOpts.Parallelism > 0 {
		options.Parallelism = cliOpts.Parallelism
	}

	err = config.ValidateCourierOptions(options, registry)
	if err != nil {
		return nil, err
	}

	state := &common.State{}
	ctx = common.WithState(ctx, state)

	doc, err := parseInput(ctx, cliOpts, options)
	if err != nil {
		return nil, err
	}

	for _, t := range options.Transformers {
		tr, _ := config.TransformerByName(t.Name)

		err = tr.Transform(ctx, t.Options, doc)
		if err != nil {
			return nil, fmt.Errorf("transform failed: %w", err)
		}
	}

	specs := make([]*generator.Spec, len(options.Generators))
	for i, s := range options.Generators {
		if s.Language == "" {
			s.Language = options.Language
		}
		specs[i] = s
	}

	specs, err = generator.Prepare(specs, registry)
	if err != nil {
		return nil, err
	}

	if cli.Verbose {
		cli.Verboseln("Generators after completion:\n" + spew.Sdump(specs))
	}

	result, err := generator.Run(ctx, specs, registry, doc,
		&common.Options{
			PackagePath: options.PackagePath,
			Comments:    options.Comments,
			Timestamp:   options.Timestamp,
		},
		graph.WithParallelism(options.Parallelism),
		graph.WithLogger(cli.Verbosef),
	)
	if err != nil {
		return nil, err
	}

	fs := genfs.New()
	if options.Parallelism > 0 {
		fs.Parallelism = options.Parallelism
	}

	err = generator.CollectFiles(result.Outputs, fs)
	if err != nil {
		return nil, err
	}

	outPath := cliOpts.OutPath
	if outPath == "" {
		outPath = "."
	}

	if cliOpts.Check {
		err = keepExisting(fs, outPath, func(string, []string) (keepAction, string, error) {
			return keepIgnore, "", nil
		})
		if err != nil {
			return nil, err
		}

		err = fs.Verify(ctx, outPath)
		if err != nil {
			return nil, err
		}

		cli.Successf("%v generated files are up to date.\n", fs.Len())
		return result, nil
	}

	err = writeFiles(ctx, cliOpts, fs, outPath)
	if err != nil {
		return nil, err
	}

	cli.Successf("%v files generated by %v generators in %v.\n", fs.Len(), len(result.Generators), result.Duration)

	if modules := state.Modules(); len(modules) != 0 {
		cli.Infof("The generated code depends on %v.\n", strings.Join(modules, ", "))
	}

	return result, nil
}

// InputPath returns the path of the input document,
// relative paths are relative to the configuration file.
func InputPath(cliOpts *config.GenerateOptions, options *config.CourierOptions) string {
	if filepath.IsAbs(options.InputPath) || cliOpts.ConfigPath == "" || cliOpts.ConfigPath == "-" {
		return options.InputPath
	}
	return filepath.Join(filepath.Dir(cliOpts.ConfigPath), options.InputPath)
}

func parseInput(
	ctx context.Context,
	cliOpts *config.GenerateOptions,
	options *config.CourierOptions,
) (*spec.Document, error) {
	inPath := InputPath(cliOpts, options)

	data, err := os.ReadFile(inPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	cli.Verbosef("Parsing %v.\n", inPath)

	var result *multierror.Error

	for _, p := range getParsers(options) {
		doc, err := p.Parse(ctx, options.Parsers[p.Name()], data)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%v: %w", p.Name(), err))
			continue
		}

		cli.Successf("Input was successfully parsed by the %v parser.\n", p.Name())

		return doc, nil
	}

	return nil, fmt.Errorf("no parsers could parse the input: %w", result)
}

func normalizeNames(options *config.CourierOptions) {
	options.InputType = strings.ToLower(strings.TrimSpace(options.InputType))

	for pName, pVal := range options.Parsers {
		normalizedName := strings.ToLower(strings.TrimSpace(pName))

		if normalizedName != pName {
			options.Parsers[normalizedName] = pVal
			delete(options.Parsers, pName)
		}
	}

	for _, transformer := range options.Transformers {
		transformer.Name = strings.ToLower(strings.TrimSpace(transformer.Name))
	}
}

func getParsers(options *config.CourierOptions) []parser.Parser {
	if options.InputType != "" {
		p, _ := parser.ByName(options.InputType)
		return []parser.Parser{p}
	}

	if len(options.Parsers) == 0 {
		return config.Parsers
	}

	names := make([]string, 0, len(options.Parsers))
	for name := range options.Parsers {
		names = append(names, name)
	}
	sort.Strings(names)

	parsers := make([]parser.Parser, 0, len(names))
	for _, name := range names {
		p, _ := parser.ByName(name)
		parsers = append(parsers, p)
	}

	return parsers
}

func writeFiles(ctx context.Context, cliOpts *config.GenerateOptions, fs *genfs.FS, outPath string) error {
	_, err := os.Stat(outPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat target directory: %w", err)
		}

		if !cliOpts.Yes {
			create := false
			prompt := &survey.Confirm{
				Message: fmt.Sprintf(`the directory "%v" doesn't exist, create it?`, outPath),
			}
			err = survey.AskOne(prompt, &create)
			if err != nil {
				return err
			}
			if !create {
				return errors.New("aborted")
			}
		}
	}

	existing := 0
	for _, f := range fs.Files() {
		if _, err := os.Stat(filepath.Join(outPath, f.RelativePath)); err == nil {
			existing++
		}
	}

	if existing > 0 && !cliOpts.Yes {
		cont := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf(`%v generated files already exist in "%v", overwrite them?`, existing, outPath),
		}
		err = survey.AskOne(prompt, &cont)
		if err != nil {
			return err
		}
		if !cont {
			return errors.New("aborted")
		}
	}

	resolve := askKeep
	if cliOpts.Yes {
		resolve = func(tag string, _ []string) (keepAction, string, error) {
			cli.Warningf("Keep tag %v doesn't exist in the newly generated code, it is backed up.\n", tag)
			return keepBackup, "", nil
		}
	}

	err = keepExisting(fs, outPath, resolve)
	if err != nil {
		return err
	}

	return fs.Write(ctx, outPath, func(path string, f *genfs.File) error {
		err := genfs.WriteFile(path, f)
		if err != nil {
			return err
		}
		cli.Verbosef("%v written.\n", path)
		return nil
	})
}

// keepExisting merges the keep blocks of the files on disk into
// the generated files, obsolete blocks are added as backup files.
func keepExisting(fs *genfs.FS, outPath string, resolve keepResolver) error {
	var backups []*genfs.File

	for _, f := range fs.Files() {
		path := filepath.Join(outPath, f.RelativePath)

		existing, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read existing file %v: %w", path, err)
		}

		merged, obsolete, err := mergeKeep(existing, f.Data, resolve)
		if err != nil {
			return fmt.Errorf("%v: %w", path, err)
		}
		f.Data = merged

		if len(obsolete) == 0 {
			continue
		}

		for n := 0; ; n++ {
			rel := f.RelativePath + ".old" + strconv.Itoa(n)
			if _, err := os.Stat(filepath.Join(outPath, rel)); err == nil {
				continue
			}

			backups = append(backups, &genfs.File{
				RelativePath: rel,
				Data:         obsolete,
				Owner:        f.Owner,
			})
			break
		}
	}

	return fs.Add(backups...)
}

func askKeep(tag string, free []string) (keepAction, string, error) {
	choiceIgnore := "ignore (default)"
	choiceBackup := "backup to a separate file"
	choiceNewTag := "choose new tag"

	keepChoices := []string{
		choiceIgnore,
	}

	if len(free) > 0 {
		keepChoices = append(keepChoices, choiceNewTag)
	}
	keepChoices = append(keepChoices, choiceBackup)

	cli.Warningf("Keep tag %v doesn't exist in the newly generated code.\n", tag)

	var choice string
	prompt := &survey.Select{
		Message: "What to do with the existing code?",
		Options: keepChoices,
	}
	err := survey.AskOne(prompt, &choice)
	if err != nil {
		return keepIgnore, "", err
	}

	switch choice {
	case choiceBackup:
		return keepBackup, "", nil
	case choiceNewTag:
		var newTag string
		prompt := &survey.Select{
			Message: "Which new tag?",
			Options: free,
		}
		err = survey.AskOne(prompt, &newTag)
		if err != nil {
			return keepIgnore, "", err
		}
		return keepRetag, newTag, nil
	}

	return keepIgnore, "", nil
}
