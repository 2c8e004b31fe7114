// Package hooks dispatches named lifecycle hooks to registered implementations.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const (
	// CacheFlush runs before every cache bin is cleared.
	CacheFlush = "cache_flush"
	// ParagraphsTypePurged runs after the rows of a paragraph type were deleted.
	ParagraphsTypePurged = "paragraphs_type_purged"
)

type Func func(ctx context.Context, payload map[string]any) error

type entry struct {
	name string
	fn   Func
}

type Dispatcher struct {
	mu    sync.RWMutex
	hooks map[string][]entry
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{hooks: map[string][]entry{}}
}

// Register adds fn under hook. Implementations run in registration order.
func (d *Dispatcher) Register(hook, name string, fn Func) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks[hook] = append(d.hooks[hook], entry{name: name, fn: fn})
}

func (d *Dispatcher) Implementations(hook string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.hooks[hook]))
	for _, e := range d.hooks[hook] {
		out = append(out, e.name)
	}
	return out
}

// InvokeAll calls every implementation of hook, even after one fails, and
// returns the joined errors.
func (d *Dispatcher) InvokeAll(ctx context.Context, hook string, payload map[string]any) error {
	d.mu.RLock()
	entries := append([]entry(nil), d.hooks[hook]...)
	d.mu.RUnlock()

	var errs []error
	for _, e := range entries {
		if err := e.fn(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("hook %s/%s: %w", hook, e.name, err))
		}
	}
	return errors.Join(errs...)
}
