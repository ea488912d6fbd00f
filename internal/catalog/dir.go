package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
)

type DirCatalog struct {
	dir    string
	exts   []string
	logger *zap.Logger
}

func NewDirCatalog(dir string, exts []string, logger *zap.Logger) *DirCatalog {
	if len(exts) == 0 {
		exts = []string{".wav"}
	}
	return &DirCatalog{dir: dir, exts: exts, logger: logger}
}

func (c *DirCatalog) List(_ context.Context) ([]Stimulus, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, c.dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !matchesExt(e.Name(), c.exts) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)

	if len(names) == 0 {
		c.logger.Warn("в каталоге стимулов нет подходящих файлов",
			zap.String("dir", c.dir), zap.Strings("extensions", c.exts))
	}
	return indexed(names), nil
}

func (c *DirCatalog) Open(_ context.Context, file string) (io.ReadCloser, error) {
	if !validName(file) || !matchesExt(file, c.exts) {
		return nil, fmt.Errorf("%w: %q", ErrStimulusNotFound, file)
	}
	f, err := os.Open(filepath.Join(c.dir, file))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrStimulusNotFound, file)
		}
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return f, nil
}
