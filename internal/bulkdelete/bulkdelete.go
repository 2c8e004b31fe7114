// Package bulkdelete lists and purges every instance of a paragraph type.
//
// The service never touches parent entities. Instances whose parent kind has
// no registered resolver are left out of the listing and of the per-instance
// cleanup, but their base rows still go with the type-wide delete.
package bulkdelete

import (
	"context"
	"errors"
	"fmt"

	"paradel/internal/cache"
	"paradel/internal/hooks"
	"paradel/internal/models"
)

type InstanceQuery interface {
	ListInstances(ctx context.Context, typeID string) ([]models.ParagraphInstance, error)
}

type Mutator interface {
	PurgeParagraphData(ctx context.Context, typeID string, instances []models.ParagraphInstance) (*models.DeleteReport, error)
}

type Store interface {
	InstanceQuery
	Mutator
}

type CacheFlusher interface {
	FlushAll(ctx context.Context) ([]string, error)
}

type Notifier interface {
	InvokeAll(ctx context.Context, hook string, payload map[string]any) error
}

// ParentResolver turns a parent id into a display row. It returns nil and no
// error when the parent does not exist.
type ParentResolver interface {
	Resolve(ctx context.Context, id string) (*models.ParentRow, []string, error)
}

type Listing struct {
	Type string             `json:"type"`
	Rows []models.ParentRow `json:"rows"`
	Tags []string           `json:"cache_tags"`
}

type Service struct {
	store     Store
	flusher   CacheFlusher
	notifier  Notifier
	resolvers map[string]ParentResolver
}

func NewService(store Store, flusher CacheFlusher, notifier Notifier) *Service {
	return &Service{
		store:     store,
		flusher:   flusher,
		notifier:  notifier,
		resolvers: map[string]ParentResolver{},
	}
}

// RegisterParent makes instances with parent_type kind visible to List and Delete.
func (s *Service) RegisterParent(kind string, r ParentResolver) {
	s.resolvers[kind] = r
}

func (s *Service) Supports(kind string) bool {
	_, ok := s.resolvers[kind]
	return ok
}

// List returns one row per resolvable parent, in first-seen order. The
// listing depends on every parent shown and on the instance list of typeID.
func (s *Service) List(ctx context.Context, typeID string) (*Listing, error) {
	instances, err := s.store.ListInstances(ctx, typeID)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Type: typeID, Rows: []models.ParentRow{}}
	var meta cache.Metadata
	seen := map[string]bool{}
	for _, inst := range instances {
		r, ok := s.resolvers[inst.ParentType]
		if !ok {
			continue
		}
		key := inst.ParentType + ":" + inst.ParentID
		if seen[key] {
			continue
		}
		row, rowTags, err := r.Resolve(ctx, inst.ParentID)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", key, err)
		}
		if row == nil {
			continue
		}
		seen[key] = true
		listing.Rows = append(listing.Rows, *row)
		for _, t := range rowTags {
			meta.AddTag(t)
		}
	}
	meta.AddTag(models.ParagraphListCacheTag(typeID))
	listing.Tags = meta.Tags()
	return listing, nil
}

// Delete purges all rows of typeID and then flushes every cache bin. A
// non-nil report means the purge committed, even when an error is returned
// for the flush or the purge hooks.
func (s *Service) Delete(ctx context.Context, typeID string) (*models.DeleteReport, error) {
	instances, err := s.store.ListInstances(ctx, typeID)
	if err != nil {
		return nil, err
	}
	supported := make([]models.ParagraphInstance, 0, len(instances))
	for _, inst := range instances {
		if s.Supports(inst.ParentType) {
			supported = append(supported, inst)
		}
	}

	report, err := s.store.PurgeParagraphData(ctx, typeID, supported)
	if err != nil {
		return nil, err
	}

	var errs []error
	if s.flusher != nil {
		flushed, err := s.flusher.FlushAll(ctx)
		report.FlushedCacheBins = flushed
		if err != nil {
			errs = append(errs, fmt.Errorf("flush caches after purging %s: %w", typeID, err))
		}
	}

	if s.notifier != nil {
		if err := s.notifier.InvokeAll(ctx, hooks.ParagraphsTypePurged, map[string]any{
			"type":       typeID,
			"instances":  report.Instances,
			"base_rows":  report.BaseRows,
			"field_rows": report.FieldDataRows,
			"cache_bins": report.FlushedCacheBins,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}
