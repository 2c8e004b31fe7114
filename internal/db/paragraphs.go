package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"paradel/internal/models"
)

var (
	ErrTypeNotFound = errors.New("paragraph type not found")
	ErrTypeInUse    = errors.New("paragraph type still has instances")
)

const paragraphsTable = "paragraphs_item"

func CreateParagraphType(ctx context.Context, database *sql.DB, id, label string) (*models.ParagraphType, error) {
	id = strings.TrimSpace(id)
	if !validIdentifier(id) {
		return nil, fmt.Errorf("invalid paragraph type id %q", id)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = id
	}
	created := nowRFC3339()
	if _, err := database.ExecContext(ctx, `
INSERT INTO paragraphs_type (id, label, created) VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET label = excluded.label`, id, label, created); err != nil {
		return nil, fmt.Errorf("create paragraph type %s: %w", id, err)
	}
	return &models.ParagraphType{ID: id, Label: label, Created: created}, nil
}

func ListParagraphTypes(ctx context.Context, database *sql.DB) ([]models.ParagraphType, error) {
	rows, err := database.QueryContext(ctx, `
SELECT t.id, t.label, t.created, COUNT(p.id)
FROM paragraphs_type t
LEFT JOIN paragraphs_item_field_data p ON p.type = t.id
GROUP BY t.id
ORDER BY t.label ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.ParagraphType, 0)
	for rows.Next() {
		var pt models.ParagraphType
		if err := rows.Scan(&pt.ID, &pt.Label, &pt.Created, &pt.Instances); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

func GetParagraphType(ctx context.Context, database *sql.DB, id string) (*models.ParagraphType, error) {
	var pt models.ParagraphType
	err := database.QueryRowContext(ctx, `
SELECT t.id, t.label, t.created,
       (SELECT COUNT(1) FROM paragraphs_item_field_data p WHERE p.type = t.id)
FROM paragraphs_type t
WHERE t.id = ?`, id).Scan(&pt.ID, &pt.Label, &pt.Created, &pt.Instances)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get paragraph type %s: %w", id, err)
	}
	return &pt, nil
}

// DeleteParagraphType removes the type record. Instances must be purged first.
func DeleteParagraphType(ctx context.Context, database *sql.DB, id string) error {
	pt, err := GetParagraphType(ctx, database, id)
	if err != nil {
		return err
	}
	if pt.Instances > 0 {
		return ErrTypeInUse
	}
	if _, err := database.ExecContext(ctx, `DELETE FROM paragraphs_type WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete paragraph type %s: %w", id, err)
	}
	return nil
}

// ListInstances returns every instance of typeID from the field data table.
func ListInstances(ctx context.Context, database *sql.DB, typeID string) ([]models.ParagraphInstance, error) {
	rows, err := database.QueryContext(ctx, `
SELECT f.id, f.revision_id, COALESCE(i.uuid, ''), f.type,
       COALESCE(f.parent_type, ''), COALESCE(f.parent_field_name, ''), COALESCE(f.parent_id, '')
FROM paragraphs_item_field_data f
LEFT JOIN paragraphs_item i ON i.id = f.id
WHERE f.type = ?
ORDER BY f.id ASC`, typeID)
	if err != nil {
		return nil, fmt.Errorf("list paragraph instances %s: %w", typeID, err)
	}
	defer rows.Close()

	out := make([]models.ParagraphInstance, 0)
	for rows.Next() {
		var p models.ParagraphInstance
		if err := rows.Scan(&p.ID, &p.RevisionID, &p.UUID, &p.Type, &p.ParentType, &p.ParentFieldName, &p.ParentID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func CountInstances(ctx context.Context, database *sql.DB, typeID string) (int, error) {
	var count int
	if err := database.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM paragraphs_item_field_data WHERE type = ?`, typeID,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func UpsertNode(ctx context.Context, database *sql.DB, n models.Node) error {
	if strings.TrimSpace(n.Type) == "" {
		n.Type = "page"
	}
	if n.Changed == "" {
		n.Changed = nowRFC3339()
	}
	_, err := database.ExecContext(ctx, `
INSERT INTO node_field_data (nid, type, title, changed) VALUES (?, ?, ?, ?)
ON CONFLICT (nid) DO UPDATE SET type = excluded.type, title = excluded.title, changed = excluded.changed`,
		n.ID, n.Type, n.Title, n.Changed)
	if err != nil {
		return fmt.Errorf("upsert node %d: %w", n.ID, err)
	}
	return nil
}

func GetNode(ctx context.Context, database *sql.DB, nid int64) (*models.Node, error) {
	var n models.Node
	err := database.QueryRowContext(ctx, `
SELECT nid, type, title, changed FROM node_field_data WHERE nid = ?`, nid).
		Scan(&n.ID, &n.Type, &n.Title, &n.Changed)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func CountNodes(ctx context.Context, database *sql.DB) (int, error) {
	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(1) FROM node_field_data`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type CreateInstanceParams struct {
	ID              int64
	UUID            string
	Type            string
	ParentType      string
	ParentFieldName string
	ParentID        string
	Revisions       int
}

// CreateInstance writes an instance with its base, field data and revision
// rows, and references it from the parent's field tables when those exist.
func CreateInstance(ctx context.Context, database *sql.DB, p CreateInstanceParams) error {
	if p.Revisions < 1 {
		p.Revisions = 1
	}
	created := nowRFC3339()

	return withTx(ctx, database, func(tx *sql.Tx) error {
		var maxRevision int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(revision_id), 0) FROM paragraphs_item_revision`,
		).Scan(&maxRevision); err != nil {
			return err
		}

		var latest int64
		for i := 0; i < p.Revisions; i++ {
			latest = maxRevision + int64(i) + 1
			if _, err := tx.ExecContext(ctx, `
INSERT INTO paragraphs_item_revision (id, revision_id, created) VALUES (?, ?, ?)`,
				p.ID, latest, created); err != nil {
				return fmt.Errorf("insert revision: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO paragraphs_item_revision_field_data (id, revision_id, type, parent_id, parent_type, parent_field_name)
VALUES (?, ?, ?, ?, ?, ?)`,
				p.ID, latest, p.Type, nullableString(p.ParentID), nullableString(p.ParentType), nullableString(p.ParentFieldName)); err != nil {
				return fmt.Errorf("insert revision field data: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO paragraphs_item (id, revision_id, type, uuid) VALUES (?, ?, ?, ?)`,
			p.ID, latest, p.Type, p.UUID); err != nil {
			return fmt.Errorf("insert paragraph %d: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO paragraphs_item_field_data (id, revision_id, type, parent_id, parent_type, parent_field_name, created)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, latest, p.Type, nullableString(p.ParentID), nullableString(p.ParentType), nullableString(p.ParentFieldName), created); err != nil {
			return fmt.Errorf("insert paragraph field data %d: %w", p.ID, err)
		}

		if validIdentifier(p.ParentType) && validIdentifier(p.ParentFieldName) {
			for _, table := range []string{
				fieldTableName(p.ParentType, p.ParentFieldName),
				fieldRevisionTableName(p.ParentType, p.ParentFieldName),
			} {
				exists, err := tableExists(ctx, tx, table)
				if err != nil {
					return err
				}
				if !exists {
					continue
				}
				if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (entity_id, revision_id, delta, target_id, target_revision_id)
VALUES (?, ?, (SELECT COUNT(1) FROM %s WHERE entity_id = ?), ?, ?)`,
					quoteIdentifier(table), quoteIdentifier(table)),
					p.ParentID, latest, p.ParentID, p.ID, latest); err != nil {
					return fmt.Errorf("reference paragraph from %s: %w", table, err)
				}
			}
		}

		return nil
	})
}

// EnsureParentFieldTables creates the {kind}__{field} and
// {kind}_revision__{field} tables a parent uses to reference paragraphs.
func EnsureParentFieldTables(ctx context.Context, database *sql.DB, kind, field string) error {
	if !validIdentifier(kind) || !validIdentifier(field) {
		return fmt.Errorf("invalid parent field %s.%s", kind, field)
	}
	for _, table := range []string{fieldTableName(kind, field), fieldRevisionTableName(kind, field)} {
		if _, err := database.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    entity_id           TEXT NOT NULL,
    revision_id         INTEGER NOT NULL,
    delta               INTEGER NOT NULL,
    target_id           INTEGER NOT NULL,
    target_revision_id  INTEGER NOT NULL,
    PRIMARY KEY (entity_id, revision_id, delta)
)`, quoteIdentifier(table))); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}
	return nil
}

func fieldTableName(kind, field string) string {
	return kind + "__" + field
}

func fieldRevisionTableName(kind, field string) string {
	return kind + "_revision__" + field
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func tableExists(ctx context.Context, q queryer, name string) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return count > 0, nil
}

// TableExists reports whether name is a table in the connected database.
func TableExists(ctx context.Context, database *sql.DB, name string) (bool, error) {
	return tableExists(ctx, database, name)
}

func CountRows(ctx context.Context, database *sql.DB, table string) (int, error) {
	if !validIdentifier(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+quoteIdentifier(table)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
