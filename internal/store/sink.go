package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"actiontag/internal/constants"
	"actiontag/pkg/classifier"
	"actiontag/pkg/errors"
	"actiontag/pkg/metrics"
	"actiontag/pkg/models"
)

// Sink persists annotated documents under a caller supplied name and returns
// where the document ended up.
type Sink interface {
	Write(ctx context.Context, name string, doc models.Document) (string, error)
	Close(ctx context.Context) error
}

// FileSink writes <Dir>/<name>.json. Documents are classified again before
// writing so the stored action always agrees with the stored keys.
type FileSink struct {
	Dir        string
	Overwrite  bool
	classifier *classifier.Classifier
}

func NewFileSink(dir string, overwrite bool, c *classifier.Classifier) *FileSink {
	if c == nil {
		c = classifier.Default()
	}
	return &FileSink{Dir: dir, Overwrite: overwrite, classifier: c}
}

func (s *FileSink) Write(ctx context.Context, name string, doc models.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.PathFor(name)
	if err != nil {
		return "", err
	}

	annotated, err := s.classifier.Classify(doc)
	if err != nil {
		return "", err
	}

	data, err := Encode(annotated)
	if err != nil {
		return "", err
	}

	if err := s.write(path, data); err != nil {
		metrics.IncSinkWrite(constants.SinkTypeFile, "error")
		return "", err
	}

	metrics.IncSinkWrite(constants.SinkTypeFile, "ok")
	return path, nil
}

func (s *FileSink) Close(context.Context) error {
	return nil
}

// PathFor derives the output path for name. A trailing ".json" is not
// doubled.
func (s *FileSink) PathFor(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	base := strings.TrimSuffix(name, constants.DocumentFileExt)
	return filepath.Join(s.Dir, base+constants.DocumentFileExt), nil
}

func (s *FileSink) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.ErrInternal.WithCause(err).WithDetail("path", path)
	}

	if !s.Overwrite {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if stderrors.Is(err, fs.ErrExist) {
				return errors.ErrConflict.WithCause(err).WithDetail("path", path)
			}
			return errors.ErrInternal.WithCause(err).WithDetail("path", path)
		}
		return writeExclusive(f, path, data)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".actiontag-*")
	if err != nil {
		return errors.ErrInternal.WithCause(err).WithDetail("path", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.ErrInternal.WithCause(err).WithDetail("path", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.ErrInternal.WithCause(err).WithDetail("path", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.ErrInternal.WithCause(err).WithDetail("path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.ErrInternal.WithCause(err).WithDetail("path", path)
	}
	return nil
}

// writeExclusive fills a file created with O_EXCL. A failed write removes
// the file so the name does not stay taken.
func writeExclusive(f io.WriteCloser, path string, data []byte) error {
	_, err := f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return errors.ErrInternal.WithCause(err).WithDetail("path", path)
	}
	return nil
}

// ValidateName accepts plain file names only.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.ErrValidation.WithDetail("field", "name").WithCause(fmt.Errorf("name is required"))
	case name == "." || name == "..":
		return errors.ErrValidation.WithDetail("field", "name").WithCause(fmt.Errorf("invalid name %q", name))
	case strings.ContainsAny(name, `/\`) || filepath.Base(name) != name:
		return errors.ErrValidation.WithDetail("field", "name").WithCause(fmt.Errorf("name %q must not contain a path", name))
	}
	return nil
}

// Encode renders doc as indented JSON with a trailing newline.
func Encode(doc models.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.ErrInternal.WithCause(fmt.Errorf("failed to encode document: %w", err))
	}
	return append(data, '\n'), nil
}
