package db

import (
	"context"
	"database/sql"
	"fmt"

	"paradel/internal/models"
)

// PurgeParagraphData deletes every row of paragraph type typeID.
//
// For each instance in instances the parent's field tables are truncated and
// the instance's revision rows are removed. The type-wide field data and base
// rows go last. Everything runs in one transaction.
func PurgeParagraphData(ctx context.Context, database *sql.DB, typeID string, instances []models.ParagraphInstance) (*models.DeleteReport, error) {
	report := &models.DeleteReport{
		Type:            typeID,
		Instances:       len(instances),
		TruncatedTables: []string{},
	}

	err := withTx(ctx, database, func(tx *sql.Tx) error {
		return purgeRows(ctx, tx, typeID, instances, report)
	})
	if err != nil {
		return nil, fmt.Errorf("purge %s: %w", typeID, err)
	}
	return report, nil
}

func purgeRows(ctx context.Context, tx *sql.Tx, typeID string, instances []models.ParagraphInstance, report *models.DeleteReport) error {
	truncated := map[string]bool{}
	for _, inst := range instances {
		if validIdentifier(inst.ParentType) && validIdentifier(inst.ParentFieldName) {
			for _, table := range []string{
				fieldRevisionTableName(inst.ParentType, inst.ParentFieldName),
				fieldTableName(inst.ParentType, inst.ParentFieldName),
			} {
				if truncated[table] {
					continue
				}
				ok, err := truncateIfExists(ctx, tx, table)
				if err != nil {
					return err
				}
				if ok {
					truncated[table] = true
					report.TruncatedTables = append(report.TruncatedTables, table)
				}
			}
		}

		for _, table := range []string{paragraphsTable + "_revision", paragraphsTable + "_revision_field_data"} {
			res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, inst.ID)
			if err != nil {
				return fmt.Errorf("delete %s rows for paragraph %d: %w", table, inst.ID, err)
			}
			n, _ := res.RowsAffected()
			report.RevisionRows += n
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM `+paragraphsTable+`_field_data WHERE type = ?`, typeID)
	if err != nil {
		return fmt.Errorf("delete field data: %w", err)
	}
	report.FieldDataRows, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM `+paragraphsTable+` WHERE type = ?`, typeID)
	if err != nil {
		return fmt.Errorf("delete base rows: %w", err)
	}
	report.BaseRows, _ = res.RowsAffected()
	return nil
}

func truncateIfExists(ctx context.Context, tx *sql.Tx, table string) (bool, error) {
	exists, err := tableExists(ctx, tx, table)
	if err != nil || !exists {
		return false, err
	}
	// SQLite has no TRUNCATE; an unqualified DELETE takes the truncate optimization.
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+quoteIdentifier(table)); err != nil {
		return false, fmt.Errorf("truncate %s: %w", table, err)
	}
	return true, nil
}
