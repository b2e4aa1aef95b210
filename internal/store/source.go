// Package store reads documents from disk and persists annotated ones.
package store

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"actiontag/pkg/classifier"
	"actiontag/pkg/errors"
	"actiontag/pkg/models"
)

type Source interface {
	Read(ctx context.Context, path string) (models.Document, error)
}

// FileSource decodes JSON files. Relative paths resolve against Dir.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Read(ctx context.Context, path string) (models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved := s.resolve(path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ErrNotFound.WithCause(err).WithDetail("path", resolved)
		}
		return nil, errors.ErrInternal.WithCause(err).WithDetail("path", resolved)
	}

	value, err := classifier.Decode(data)
	if err != nil {
		return nil, err
	}

	doc, ok := value.(map[string]interface{})
	if !ok {
		return nil, errors.ErrTypeMismatch.WithDetail("path", resolved)
	}
	return models.Document(doc), nil
}

func (s *FileSource) resolve(path string) string {
	if filepath.IsAbs(path) || s.Dir == "" {
		return path
	}
	return filepath.Join(s.Dir, path)
}
