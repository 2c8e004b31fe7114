package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeAllRunsInOrderAndJoinsErrors(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Register(CacheFlush, "first", func(ctx context.Context, payload map[string]any) error {
		calls = append(calls, "first")
		return boom
	})
	d.Register(CacheFlush, "second", func(ctx context.Context, payload map[string]any) error {
		calls = append(calls, "second")
		return nil
	})
	d.Register(ParagraphsTypePurged, "other", func(ctx context.Context, payload map[string]any) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.InvokeAll(context.Background(), CacheFlush, nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "cache_flush/first")
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, []string{"first", "second"}, d.Implementations(CacheFlush))
}

func TestInvokeAllWithoutImplementations(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.InvokeAll(context.Background(), "missing", map[string]any{"x": 1}))
	assert.Empty(t, d.Implementations("missing"))
}
