package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"paradel/internal/models"
)

// Fixture is the YAML layout accepted by ImportFixture.
type Fixture struct {
	Types []struct {
		ID    string `yaml:"id"`
		Label string `yaml:"label"`
	} `yaml:"types"`
	Nodes []struct {
		ID    int64  `yaml:"nid"`
		Type  string `yaml:"type"`
		Title string `yaml:"title"`
	} `yaml:"nodes"`
	Paragraphs []struct {
		ID        int64  `yaml:"id"`
		UUID      string `yaml:"uuid"`
		Type      string `yaml:"type"`
		Parent    string `yaml:"parent"`
		Revisions int    `yaml:"revisions"`
	} `yaml:"paragraphs"`
}

func ImportFromPath(ctx context.Context, database *sql.DB, fromPath string) error {
	fx, err := LoadFixture(fromPath)
	if err != nil {
		return err
	}
	return ImportFixture(ctx, database, fx)
}

func LoadFixture(fromPath string) (Fixture, error) {
	b, err := os.ReadFile(fromPath)
	if err != nil {
		return Fixture{}, err
	}
	var fx Fixture
	if err := yaml.Unmarshal(b, &fx); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", fromPath, err)
	}
	return fx, nil
}

// FixtureCacheTags lists the node and paragraph list tags a fixture touches.
func FixtureCacheTags(fx Fixture) []string {
	seen := map[string]bool{}
	var tags []string
	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	for _, n := range fx.Nodes {
		add(models.NodeCacheTag(n.ID))
	}
	for _, p := range fx.Paragraphs {
		add(models.ParagraphListCacheTag(p.Type))
	}
	return tags
}

// ImportFixture loads types, nodes and paragraphs. A paragraph parent is
// written as "kind/id/field", for example "node/12/field_blocks".
func ImportFixture(ctx context.Context, database *sql.DB, fx Fixture) error {
	for _, t := range fx.Types {
		if _, err := CreateParagraphType(ctx, database, t.ID, t.Label); err != nil {
			return err
		}
	}
	for _, n := range fx.Nodes {
		if err := UpsertNode(ctx, database, models.Node{ID: n.ID, Type: n.Type, Title: n.Title}); err != nil {
			return err
		}
	}

	fields := map[string]bool{}
	for i, p := range fx.Paragraphs {
		kind, parentID, field, err := parseParentRef(p.Parent)
		if err != nil {
			return fmt.Errorf("paragraph %d: %w", i, err)
		}
		if kind != "" && !fields[kind+"."+field] {
			if err := EnsureParentFieldTables(ctx, database, kind, field); err != nil {
				return err
			}
			fields[kind+"."+field] = true
		}
		id := p.ID
		if id == 0 {
			id = int64(i + 1)
		}
		uid := strings.TrimSpace(p.UUID)
		if uid == "" {
			uid = uuid.NewString()
		}
		if err := CreateInstance(ctx, database, CreateInstanceParams{
			ID:              id,
			UUID:            uid,
			Type:            p.Type,
			ParentType:      kind,
			ParentFieldName: field,
			ParentID:        parentID,
			Revisions:       p.Revisions,
		}); err != nil {
			return err
		}
	}
	return nil
}

func parseParentRef(ref string) (kind, id, field string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", "", nil
	}
	parts := strings.Split(ref, "/")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("parent %q must be kind/id/field", ref)
	}
	kind, id, field = parts[0], parts[1], parts[2]
	if !validIdentifier(kind) || !validIdentifier(field) {
		return "", "", "", fmt.Errorf("parent %q has an invalid kind or field", ref)
	}
	if kind == "node" {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return "", "", "", fmt.Errorf("parent %q has a non-numeric node id", ref)
		}
	}
	return kind, id, field, nil
}
