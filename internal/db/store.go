package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"paradel/internal/models"
)

// Invalidator drops cached entries that depend on any of the tags.
type Invalidator interface {
	InvalidateTags(ctx context.Context, tags ...string) error
}

// Store binds the package functions to one connection. Writes through the
// Store invalidate the cache tags of what they touched when Cache is set.
type Store struct {
	DB    *sql.DB
	Cache Invalidator
}

func NewStore(database *sql.DB, cache Invalidator) *Store {
	return &Store{DB: database, Cache: cache}
}

func (s *Store) UpsertNode(ctx context.Context, n models.Node) error {
	if err := UpsertNode(ctx, s.DB, n); err != nil {
		return err
	}
	return s.invalidate(ctx, models.NodeCacheTag(n.ID))
}

func (s *Store) CreateInstance(ctx context.Context, p CreateInstanceParams) error {
	if err := CreateInstance(ctx, s.DB, p); err != nil {
		return err
	}
	return s.invalidate(ctx, models.ParagraphListCacheTag(p.Type))
}

// Import loads a fixture file and returns the cache tags it invalidated.
func (s *Store) Import(ctx context.Context, fromPath string) ([]string, error) {
	fx, err := LoadFixture(fromPath)
	if err != nil {
		return nil, err
	}
	if err := ImportFixture(ctx, s.DB, fx); err != nil {
		return nil, err
	}
	tags := FixtureCacheTags(fx)
	return tags, s.invalidate(ctx, tags...)
}

func (s *Store) invalidate(ctx context.Context, tags ...string) error {
	if s.Cache == nil || len(tags) == 0 {
		return nil
	}
	if err := s.Cache.InvalidateTags(ctx, tags...); err != nil {
		return fmt.Errorf("invalidate cache tags: %w", err)
	}
	return nil
}

func (s *Store) ListInstances(ctx context.Context, typeID string) ([]models.ParagraphInstance, error) {
	return ListInstances(ctx, s.DB, typeID)
}

func (s *Store) PurgeParagraphData(ctx context.Context, typeID string, instances []models.ParagraphInstance) (*models.DeleteReport, error) {
	return PurgeParagraphData(ctx, s.DB, typeID, instances)
}

// LoadNode returns nil without error when the node does not exist.
func (s *Store) LoadNode(ctx context.Context, id string) (*models.Node, error) {
	nid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, nil
	}
	n, err := GetNode(ctx, s.DB, nid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}
