package catalog

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// ObjectStore - то, что каталогу нужно от объектного хранилища.
// Реализуется storage.MinioStorage.
type ObjectStore interface {
	ListFiles(ctx context.Context, prefix string) ([]string, error)
	GetFile(ctx context.Context, objectName string) (io.ReadCloser, error)
}

// MinioCatalog берёт стимулы из бакета под заданным префиксом.
type MinioCatalog struct {
	store  ObjectStore
	prefix string
	exts   []string
	logger *zap.Logger
}

func NewMinioCatalog(store ObjectStore, prefix string, exts []string, logger *zap.Logger) *MinioCatalog {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if len(exts) == 0 {
		exts = []string{".wav"}
	}
	return &MinioCatalog{store: store, prefix: prefix, exts: exts, logger: logger}
}

func (c *MinioCatalog) List(ctx context.Context) ([]Stimulus, error) {
	keys, err := c.store.ListFiles(ctx, c.prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	var names []string
	for _, k := range keys {
		name := strings.TrimPrefix(k, c.prefix)
		// вложенные "папки" не считаются стимулами
		if !validName(name) || !matchesExt(name, c.exts) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)

	if len(names) == 0 {
		c.logger.Warn("в бакете нет подходящих стимулов",
			zap.String("prefix", c.prefix), zap.Strings("extensions", c.exts))
	}
	return indexed(names), nil
}

func (c *MinioCatalog) Open(ctx context.Context, file string) (io.ReadCloser, error) {
	if !validName(file) || !matchesExt(file, c.exts) {
		return nil, fmt.Errorf("%w: %q", ErrStimulusNotFound, file)
	}
	obj, err := c.store.GetFile(ctx, path.Join(c.prefix, file))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrStimulusNotFound, file, err)
	}
	return obj, nil
}
