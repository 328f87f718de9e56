// Package genfs holds generated files in memory until they are
// written to disk or compared with the files on disk.
package genfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// File is a single generated file.
type File struct {
	// RelativePath is where the file is written, relative to the output directory.
	RelativePath string

	// Data is the content of the file.
	Data []byte

	// Owner is the id of the generator that created the file.
	Owner string
}

// FS is a set of generated files. Paths can only be added once,
// a conflict between two generators is an error.
type FS struct {
	mu    sync.Mutex
	files map[string]*File

	// Parallelism of Write and Verify.
	Parallelism int
}

// New creates an empty FS.
func New() *FS {
	return &FS{
		files:       make(map[string]*File),
		Parallelism: 12,
	}
}

// Add adds files to the FS.
func (fs *FS) Add(files ...*File) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var result *multierror.Error
	for _, f := range files {
		if filepath.IsAbs(f.RelativePath) {
			result = multierror.Append(result, fmt.Errorf("%v: generated files must have relative paths (generator %q)", f.RelativePath, f.Owner))
			continue
		}
		if existing, ok := fs.files[filepath.Clean(f.RelativePath)]; ok {
			result = multierror.Append(result, fmt.Errorf("%v: generated by both %q and %q", f.RelativePath, existing.Owner, f.Owner))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	for _, f := range files {
		fs.files[filepath.Clean(f.RelativePath)] = f
	}
	return nil
}

// Files returns the files sorted by path.
func (fs *FS) Files() []*File {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	files := make([]*File, 0, len(fs.files))
	for _, f := range fs.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
	return files
}

// Len returns the number of files.
func (fs *FS) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.files)
}

// WriteFunc writes a single file, it can be used to
// post-process files on writing.
type WriteFunc func(path string, f *File) error

// WriteFile writes the file as it is.
func WriteFile(path string, f *File) error {
	return os.WriteFile(path, f.Data, 0644)
}

// Write writes every file under the prefix directory.
func (fs *FS) Write(ctx context.Context, prefix string, write WriteFunc) error {
	if write == nil {
		write = WriteFile
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(fs.parallelism())

	for _, f := range fs.Files() {
		f := f
		g.Go(func() error {
			path := filepath.Join(prefix, f.RelativePath)
			if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
				return fmt.Errorf("%v: failed to create the parent directory: %w", path, err)
			}
			if err := write(path, f); err != nil {
				return fmt.Errorf("%v: failed to write file: %w", path, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Verify compares the files with the ones on disk under the prefix
// directory, the differences are returned as a single error.
func (fs *FS) Verify(ctx context.Context, prefix string) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(fs.parallelism())

	var mu sync.Mutex
	var result *multierror.Error

	for _, f := range fs.Files() {
		f := f
		g.Go(func() error {
			path := filepath.Join(prefix, f.RelativePath)
			existing, err := os.ReadFile(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					mu.Lock()
					result = multierror.Append(result, fmt.Errorf("%v: generated file does not exist", path))
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("%v: failed to read file: %w", path, err)
			}

			if diff := cmp.Diff(string(existing), string(f.Data)); diff != "" {
				mu.Lock()
				result = multierror.Append(result, fmt.Errorf("%v would change:\n\n%v", path, diff))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to verify generated files: %w", err)
	}

	return result.ErrorOrNil()
}

func (fs *FS) parallelism() int {
	if fs.Parallelism < 1 {
		return 1
	}
	return fs.Parallelism
}
