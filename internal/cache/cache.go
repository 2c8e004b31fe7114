// Package cache holds the registry of cache bins the admin service flushes.
package cache

import (
	"context"
	"errors"
)

var ErrMiss = errors.New("cache miss")

// Bins every server registers. Rendered pages go to RenderBin, loaded
// parent entities to EntityBin.
const (
	RenderBin = "render"
	EntityBin = "entity"
)

// Bin is one cache store. DeleteAll empties it completely.
type Bin interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, tags []string) error
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context) error
}

// TagInvalidator is implemented by bins that can drop entries by tag.
type TagInvalidator interface {
	InvalidateTags(ctx context.Context, tags ...string) error
}

// Metadata collects the cache tags a rendered response depends on.
type Metadata struct {
	tags []string
	seen map[string]struct{}
}

func (m *Metadata) AddTag(tag string) {
	if m.seen == nil {
		m.seen = map[string]struct{}{}
	}
	if _, ok := m.seen[tag]; ok {
		return
	}
	m.seen[tag] = struct{}{}
	m.tags = append(m.tags, tag)
}

func (m *Metadata) Tags() []string {
	return append([]string(nil), m.tags...)
}

func hasAnyTag(entryTags []string, tags map[string]struct{}) bool {
	for _, t := range entryTags {
		if _, ok := tags[t]; ok {
			return true
		}
	}
	return false
}

func tagSet(tags []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		out[t] = struct{}{}
	}
	return out
}
