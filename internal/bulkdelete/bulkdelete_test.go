package bulkdelete

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paradel/internal/cache"
	"paradel/internal/hooks"
	"paradel/internal/models"
)

type fakeStore struct {
	instances []models.ParagraphInstance
	purged    []models.ParagraphInstance
	purgeErr  error
	purges    int
}

func (f *fakeStore) ListInstances(ctx context.Context, typeID string) ([]models.ParagraphInstance, error) {
	out := make([]models.ParagraphInstance, 0)
	for _, inst := range f.instances {
		if inst.Type == typeID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (f *fakeStore) PurgeParagraphData(ctx context.Context, typeID string, instances []models.ParagraphInstance) (*models.DeleteReport, error) {
	f.purges++
	if f.purgeErr != nil {
		return nil, f.purgeErr
	}
	f.purged = instances
	return &models.DeleteReport{Type: typeID, Instances: len(instances)}, nil
}

type fakeNodes map[string]*models.Node

func (f fakeNodes) LoadNode(ctx context.Context, id string) (*models.Node, error) {
	return f[id], nil
}

type countingFlusher struct {
	calls int
	err   error
}

func (c *countingFlusher) FlushAll(ctx context.Context) ([]string, error) {
	c.calls++
	if c.err != nil {
		return []string{"render"}, c.err
	}
	return []string{"render", "entity"}, nil
}

func quoteFixture() *fakeStore {
	return &fakeStore{instances: []models.ParagraphInstance{
		{ID: 1, Type: "quote", ParentType: "node", ParentFieldName: "field_blocks", ParentID: "10"},
		{ID: 2, Type: "quote", ParentType: "node", ParentFieldName: "field_blocks", ParentID: "10"},
		{ID: 3, Type: "quote", ParentType: "node", ParentFieldName: "field_blocks", ParentID: "20"},
		{ID: 4, Type: "quote", ParentType: "block_content", ParentFieldName: "field_body", ParentID: "7"},
		{ID: 5, Type: "quote", ParentType: "node", ParentFieldName: "field_blocks", ParentID: "99"},
		{ID: 6, Type: "banner", ParentType: "node", ParentFieldName: "field_blocks", ParentID: "10"},
	}}
}

func newTestService(t *testing.T, store *fakeStore, flusher CacheFlusher, notifier Notifier) (*Service, *cache.MemoryBin) {
	t.Helper()
	bin, err := cache.NewMemoryBin("entity", 16)
	require.NoError(t, err)
	svc := NewService(store, flusher, notifier)
	svc.RegisterParent("node", NodeResolver{
		Loader: fakeNodes{
			"10": {ID: 10, Title: "Node A"},
			"20": {ID: 20, Title: "Node B"},
		},
		Cache: bin,
	})
	return svc, bin
}

func TestListOneRowPerResolvedParent(t *testing.T) {
	svc, bin := newTestService(t, quoteFixture(), nil, nil)

	listing, err := svc.List(context.Background(), "quote")
	require.NoError(t, err)
	require.Len(t, listing.Rows, 2)
	assert.Equal(t, "Node A", listing.Rows[0].Label)
	assert.Equal(t, "/node/10", listing.Rows[0].URL)
	assert.Equal(t, "Node B", listing.Rows[1].Label)
	assert.Equal(t, []string{"node:10", "node:20", "paragraphs_item_list:quote"}, listing.Tags)
	assert.Equal(t, 2, bin.Len())
}

func TestListEmptyForUnusedType(t *testing.T) {
	svc, _ := newTestService(t, quoteFixture(), nil, nil)
	listing, err := svc.List(context.Background(), "carousel")
	require.NoError(t, err)
	assert.Empty(t, listing.Rows)
	assert.Equal(t, []string{"paragraphs_item_list:carousel"}, listing.Tags)
}

func TestDeletePurgesSupportedInstancesAndFlushes(t *testing.T) {
	store := quoteFixture()
	flusher := &countingFlusher{}
	dispatcher := hooks.NewDispatcher()
	var purgedType string
	dispatcher.Register(hooks.ParagraphsTypePurged, "test", func(ctx context.Context, payload map[string]any) error {
		purgedType, _ = payload["type"].(string)
		return nil
	})
	svc, _ := newTestService(t, store, flusher, dispatcher)

	report, err := svc.Delete(context.Background(), "quote")
	require.NoError(t, err)
	assert.Equal(t, 1, flusher.calls)
	assert.Equal(t, []string{"render", "entity"}, report.FlushedCacheBins)
	assert.Equal(t, "quote", purgedType)

	ids := make([]int64, 0, len(store.purged))
	for _, inst := range store.purged {
		ids = append(ids, inst.ID)
	}
	// Unresolvable node parents are still purged; other parent kinds are not.
	assert.Equal(t, []int64{1, 2, 3, 5}, ids)
}

func TestDeleteStopsBeforeFlushOnStoreError(t *testing.T) {
	store := quoteFixture()
	store.purgeErr = errors.New("database is locked")
	flusher := &countingFlusher{}
	svc, _ := newTestService(t, store, flusher, nil)

	_, err := svc.Delete(context.Background(), "quote")
	require.ErrorIs(t, err, store.purgeErr)
	assert.Equal(t, 0, flusher.calls)
}

func TestDeleteReportsCommittedPurgeWhenFlushFails(t *testing.T) {
	store := quoteFixture()
	flusher := &countingFlusher{err: errors.New("redis unreachable")}
	dispatcher := hooks.NewDispatcher()
	hookCalls := 0
	dispatcher.Register(hooks.ParagraphsTypePurged, "test", func(ctx context.Context, payload map[string]any) error {
		hookCalls++
		return nil
	})
	svc, _ := newTestService(t, store, flusher, dispatcher)

	report, err := svc.Delete(context.Background(), "quote")
	require.ErrorIs(t, err, flusher.err)
	require.NotNil(t, report)
	assert.Equal(t, 4, report.Instances)
	assert.Equal(t, []string{"render"}, report.FlushedCacheBins)
	assert.Equal(t, 1, hookCalls)
}
