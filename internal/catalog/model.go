// Package catalog перечисляет доступные аудиостимулы.
package catalog

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrCatalogUnavailable = errors.New("каталог стимулов недоступен")
	ErrCatalogEmpty       = errors.New("в каталоге нет стимулов")
	ErrStimulusNotFound   = errors.New("стимул не найден")
)

// Stimulus - один аудиофайл. Index - позиция в отсортированном каталоге.
type Stimulus struct {
	Index int    `json:"index"`
	File  string `json:"file"`
}

type Catalog interface {
	// List возвращает стимулы в лексикографическом порядке имён.
	List(ctx context.Context) ([]Stimulus, error)
	Open(ctx context.Context, file string) (io.ReadCloser, error)
}

func matchesExt(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func indexed(names []string) []Stimulus {
	out := make([]Stimulus, len(names))
	for i, n := range names {
		out[i] = Stimulus{Index: i, File: n}
	}
	return out
}

// validName отсекает пути: стимул всегда адресуется просто именем файла.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
