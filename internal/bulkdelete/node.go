package bulkdelete

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"paradel/internal/cache"
	"paradel/internal/models"
)

type NodeLoader interface {
	LoadNode(ctx context.Context, id string) (*models.Node, error)
}

// NodeResolver loads parent nodes, reading through the entity bin when set.
type NodeResolver struct {
	Loader NodeLoader
	Cache  cache.Bin
}

func (r NodeResolver) Resolve(ctx context.Context, id string) (*models.ParentRow, []string, error) {
	n, err := r.load(ctx, id)
	if err != nil || n == nil {
		return nil, nil, err
	}
	nid := strconv.FormatInt(n.ID, 10)
	row := &models.ParentRow{
		Kind:  "node",
		ID:    nid,
		Label: n.Title,
		URL:   "/node/" + nid,
	}
	return row, []string{models.NodeCacheTag(n.ID)}, nil
}

func (r NodeResolver) load(ctx context.Context, id string) (*models.Node, error) {
	key := "node:" + id
	if r.Cache != nil {
		raw, err := r.Cache.Get(ctx, key)
		if err == nil {
			var n models.Node
			if json.Unmarshal(raw, &n) == nil {
				return &n, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			return nil, err
		}
	}

	n, err := r.Loader.LoadNode(ctx, id)
	if err != nil || n == nil {
		return nil, err
	}
	if r.Cache != nil {
		if raw, err := json.Marshal(n); err == nil {
			_ = r.Cache.Set(ctx, key, raw, []string{models.NodeCacheTag(n.ID)})
		}
	}
	return n, nil
}
