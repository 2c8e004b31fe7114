package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultLRUSize = 1024

type lruEntry struct {
	value []byte
	tags  []string
}

// MemoryBin is an in-process bin with least-recently-used eviction.
type MemoryBin struct {
	name    string
	entries *lru.Cache[string, lruEntry]
}

func NewMemoryBin(name string, size int) (*MemoryBin, error) {
	if size <= 0 {
		size = defaultLRUSize
	}
	entries, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru bin %s: %w", name, err)
	}
	return &MemoryBin{name: name, entries: entries}, nil
}

func (b *MemoryBin) Name() string { return b.name }

func (b *MemoryBin) Get(ctx context.Context, key string) ([]byte, error) {
	e, ok := b.entries.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return e.value, nil
}

func (b *MemoryBin) Set(ctx context.Context, key string, value []byte, tags []string) error {
	b.entries.Add(key, lruEntry{value: value, tags: append([]string(nil), tags...)})
	return nil
}

func (b *MemoryBin) Delete(ctx context.Context, key string) error {
	b.entries.Remove(key)
	return nil
}

func (b *MemoryBin) DeleteAll(ctx context.Context) error {
	b.entries.Purge()
	return nil
}

func (b *MemoryBin) Len() int {
	return b.entries.Len()
}

func (b *MemoryBin) InvalidateTags(ctx context.Context, tags ...string) error {
	set := tagSet(tags)
	for _, key := range b.entries.Keys() {
		e, ok := b.entries.Peek(key)
		if ok && hasAnyTag(e.tags, set) {
			b.entries.Remove(key)
		}
	}
	return nil
}
