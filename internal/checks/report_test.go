package checks

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/modelrun/internal/output"
)

var errSentinel = errors.New("sentinel")

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := output.Logger
	output.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { output.SetLogger(prev) })
	return &buf
}

func TestRaiseWithoutErrorsStillEmitsWarnings(t *testing.T) {
	logs := captureLogs(t)

	var r Report
	r.Warnf("first %d", 1)
	r.Warnf("second")

	require.NoError(t, r.Raise())
	assert.Contains(t, logs.String(), "first 1")
	assert.Contains(t, logs.String(), "second")
}

func TestRaiseAggregatesAllErrors(t *testing.T) {
	logs := captureLogs(t)

	var r Report
	r.Warnf("a warning")
	r.Errorf("bad %s", "thing")
	r.AddError(fmt.Errorf("wrapped: %w", errSentinel), nil)

	err := r.Raise()
	require.Error(t, err)
	assert.Equal(t, "model configuration is invalid:\n- bad thing\n- wrapped: sentinel", err.Error())
	assert.ErrorIs(t, err, errSentinel)
	assert.Equal(t, []string{"bad thing", "wrapped: sentinel"}, Messages(err))
	assert.Contains(t, logs.String(), "a warning", "warnings are emitted before the raise")
}

func TestMergeAndOK(t *testing.T) {
	var a, b Report
	b.Warnf("w")
	assert.True(t, a.OK())
	b.Errorf("e")
	a.Merge(b)
	assert.False(t, a.OK())
	assert.Equal(t, []string{"w"}, a.Warnings)
}

func TestMessagesOfPlainError(t *testing.T) {
	assert.Equal(t, []string{"sentinel"}, Messages(errSentinel))
}
