package models

import "strconv"

// ParagraphType is the schema of a reusable content block.
type ParagraphType struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Created   string `json:"created"`
	Instances int    `json:"instances"`
}

// ParagraphInstance is one block of a type, embedded in a parent through a field.
type ParagraphInstance struct {
	ID              int64  `json:"id"`
	RevisionID      int64  `json:"revision_id"`
	UUID            string `json:"uuid"`
	Type            string `json:"type"`
	ParentType      string `json:"parent_type"`
	ParentFieldName string `json:"parent_field_name"`
	ParentID        string `json:"parent_id"`
}

type Node struct {
	ID      int64  `json:"nid"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Changed string `json:"changed"`
}

// ParentRow is one line of the bulk delete confirmation list.
type ParentRow struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

type DeleteReport struct {
	Type             string   `json:"type"`
	Instances        int      `json:"instances"`
	TruncatedTables  []string `json:"truncated_tables"`
	RevisionRows     int64    `json:"revision_rows"`
	FieldDataRows    int64    `json:"field_data_rows"`
	BaseRows         int64    `json:"base_rows"`
	FlushedCacheBins []string `json:"flushed_cache_bins,omitempty"`
}

// NodeCacheTag marks cache entries that render or embed a node.
func NodeCacheTag(nid int64) string {
	return "node:" + strconv.FormatInt(nid, 10)
}

// ParagraphListCacheTag marks cache entries built from the instance list of
// a paragraph type.
func ParagraphListCacheTag(typeID string) string {
	return "paragraphs_item_list:" + typeID
}
