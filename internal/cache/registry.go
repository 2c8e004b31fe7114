package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"paradel/internal/hooks"
)

// Registry holds every cache bin of the process.
type Registry struct {
	mu     sync.RWMutex
	bins   []Bin
	hooks  *hooks.Dispatcher
	logger zerolog.Logger
}

func NewRegistry(dispatcher *hooks.Dispatcher, logger zerolog.Logger) *Registry {
	if dispatcher == nil {
		dispatcher = hooks.NewDispatcher()
	}
	return &Registry{hooks: dispatcher, logger: logger}
}

func (r *Registry) Register(bin Bin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bins {
		if b.Name() == bin.Name() {
			return fmt.Errorf("cache bin %q already registered", bin.Name())
		}
	}
	r.bins = append(r.bins, bin)
	return nil
}

func (r *Registry) Bin(name string) (Bin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.bins {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}

func (r *Registry) Bins() []Bin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Bin(nil), r.bins...)
}

// FlushAll runs the cache_flush hooks and then empties every bin. All bins
// are attempted; the returned names are the bins that were emptied.
func (r *Registry) FlushAll(ctx context.Context) ([]string, error) {
	var errs []error
	if err := r.hooks.InvokeAll(ctx, hooks.CacheFlush, nil); err != nil {
		errs = append(errs, err)
	}

	bins := r.Bins()
	flushed := make([]string, 0, len(bins))
	for _, b := range bins {
		if err := b.DeleteAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush bin %s: %w", b.Name(), err))
			continue
		}
		flushed = append(flushed, b.Name())
	}
	r.logger.Info().Strs("bins", flushed).Int("errors", len(errs)).Msg("cache_flush")
	return flushed, errors.Join(errs...)
}

// InvalidateTags drops tagged entries from every bin that supports tags.
func (r *Registry) InvalidateTags(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	var errs []error
	for _, b := range r.Bins() {
		inv, ok := b.(TagInvalidator)
		if !ok {
			continue
		}
		if err := inv.InvalidateTags(ctx, tags...); err != nil {
			errs = append(errs, fmt.Errorf("invalidate bin %s: %w", b.Name(), err))
		}
	}
	return errors.Join(errs...)
}
