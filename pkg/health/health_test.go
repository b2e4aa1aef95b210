package health

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticChecker struct {
	name string
	err  error
}

func (c staticChecker) Name() string                { return c.name }
func (c staticChecker) Check(context.Context) error { return c.err }

func TestCheckerRegistry(t *testing.T) {
	down := stderrors.New("down")

	tests := []struct {
		name     string
		required []Checker
		optional []Checker
		want     Status
	}{
		{name: "empty", want: StatusHealthy},
		{name: "all healthy", required: []Checker{staticChecker{name: "a"}}, optional: []Checker{staticChecker{name: "b"}}, want: StatusHealthy},
		{name: "optional failing", required: []Checker{staticChecker{name: "a"}}, optional: []Checker{staticChecker{name: "b", err: down}}, want: StatusDegraded},
		{name: "required failing", required: []Checker{staticChecker{name: "a", err: down}}, optional: []Checker{staticChecker{name: "b", err: down}}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewCheckerRegistry()
			for _, c := range tt.required {
				registry.Register(c)
			}
			for _, c := range tt.optional {
				registry.RegisterOptional(c)
			}

			h := registry.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.required)+len(tt.optional))
		})
	}
}

func TestDirectoryChecker(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, NewDirectoryChecker("sink", dir).Check(context.Background()))
	assert.Error(t, NewDirectoryChecker("sink", filepath.Join(dir, "missing")).Check(context.Background()))
	assert.Equal(t, "sink", NewDirectoryChecker("sink", dir).Name())
}
