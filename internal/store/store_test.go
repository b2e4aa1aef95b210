package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actiontag/pkg/errors"
	"actiontag/pkg/models"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileSource_Read(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "join.json", `{"user":"U","date":"D2","System/planet":"Mars","n":10}`)

	src := NewFileSource(dir)
	doc, err := src.Read(context.Background(), "join.json")
	require.NoError(t, err)

	assert.Equal(t, "U", doc["user"])
	assert.Equal(t, json.Number("10"), doc["n"])
	assert.NotContains(t, doc, models.ActionKey)
}

func TestFileSource_AbsolutePath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.json", `{}`)

	doc, err := NewFileSource("/nonexistent").Read(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestFileSource_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{"user":`)
	writeFile(t, dir, "list.json", `["x","y"]`)

	src := NewFileSource(dir)

	_, err := src.Read(context.Background(), "missing.json")
	assert.True(t, errors.IsNotFound(err), "%v", err)

	_, err = src.Read(context.Background(), "bad.json")
	assert.True(t, errors.IsDecode(err), "%v", err)

	_, err = src.Read(context.Background(), "list.json")
	assert.True(t, errors.IsTypeMismatch(err), "%v", err)
}

func TestFileSink_Write(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, false, nil)

	doc := models.Document{"author": "A", "date": "D1", "System/planet": "Earth", "messageSent": "hi"}
	path, err := sink.Write(context.Background(), "chat", doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chat.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "messageSent", stored["action"])
	assert.Equal(t, "hi", stored["messageSent"])
	assert.Equal(t, byte('\n'), data[len(data)-1])

	assert.NotContains(t, doc, models.ActionKey, "caller's document must not be mutated")
}

func TestFileSink_ReclassifiesStaleAction(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, false, nil)

	path, err := sink.Write(context.Background(), "stale", models.Document{"user": "U", "action": "messageSent"})
	require.NoError(t, err)

	doc, err := NewFileSource("").Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "quiet", doc["action"])
}

func TestFileSink_OverwritePolicy(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	strict := NewFileSink(dir, false, nil)
	_, err := strict.Write(ctx, "doc.json", models.Document{})
	require.NoError(t, err)

	_, err = strict.Write(ctx, "doc", models.Document{})
	assert.True(t, errors.IsConflict(err), "%v", err)

	lenient := NewFileSink(dir, true, nil)
	path, err := lenient.Write(ctx, "doc", models.Document{"user": "U", "date": "D", "System/planet": "P"})
	require.NoError(t, err)

	doc, err := NewFileSource("").Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "userJoin", doc["action"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

type failingFile struct {
	*os.File
}

func (f failingFile) Write([]byte) (int, error) {
	f.File.Write([]byte(`{"partial"`))
	return 0, stderrors.New("disk full")
}

func TestWriteExclusive_FailedWriteFreesName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	require.NoError(t, err)

	err = writeExclusive(failingFile{f}, path, []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, errors.ErrInternal.Code, errors.Code(err))
	assert.NoFileExists(t, path)

	// The name is free again, so the next write is not a conflict.
	sink := NewFileSink(dir, false, nil)
	out, err := sink.Write(context.Background(), "doc", models.Document{"user": "u", "date": "d", "System/planet": "p"})
	require.NoError(t, err)
	assert.Equal(t, path, out)
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"", " ", ".", "..", "a/b", `a\b`, "../x"} {
		assert.True(t, errors.IsValidation(ValidateName(name)), "name %q", name)
	}
	for _, name := range []string{"chat", "chat.json", "2024-01-01_log"} {
		assert.NoError(t, ValidateName(name), "name %q", name)
	}
}
