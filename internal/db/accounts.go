package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"paradel/internal/auth"
	"paradel/internal/models"
)

func CreateAccount(ctx context.Context, database *sql.DB, name, role, apiKeyHash string) error {
	_, err := database.ExecContext(
		ctx,
		`INSERT INTO accounts (name, api_key, role, created) VALUES (?, ?, ?, ?)`,
		name, apiKeyHash, role, nowRFC3339(),
	)
	return err
}

func DeleteAccount(ctx context.Context, database *sql.DB, name string) error {
	res, err := database.ExecContext(ctx, `DELETE FROM accounts WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func GetAccountByAPIKeyHash(ctx context.Context, database *sql.DB, apiKeyHash string) (*models.Account, error) {
	var a models.Account
	err := database.QueryRowContext(ctx, `
SELECT name, role, created, last_active
FROM accounts
WHERE api_key = ?`, apiKeyHash).
		Scan(&a.Name, &a.Role, &a.Created, &a.LastActive)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func TouchAccount(ctx context.Context, database *sql.DB, name string) error {
	_, err := database.ExecContext(ctx, `UPDATE accounts SET last_active = ? WHERE name = ?`, nowRFC3339(), name)
	return err
}

// EnsureBootstrapAdmin creates the first admin and writes its key to keyOutPath.
// It returns an empty name when an admin already exists.
func EnsureBootstrapAdmin(database *sql.DB, keyOutPath string) (string, error) {
	ctx := context.Background()
	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts WHERE role = 'admin'`).Scan(&count); err != nil {
		return "", fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return "", nil
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	name := "admin"
	if err := CreateAccount(ctx, database, name, "admin", auth.HashAPIKey(apiKey)); err != nil {
		return "", fmt.Errorf("create bootstrap admin: %w", err)
	}

	if err := os.WriteFile(keyOutPath, []byte(apiKey+"\n"), 0o600); err != nil {
		if delErr := DeleteAccount(ctx, database, name); delErr != nil && !errors.Is(delErr, sql.ErrNoRows) {
			return "", fmt.Errorf("write key failed (%v), rollback failed (%v)", err, delErr)
		}
		return "", fmt.Errorf("write admin key file: %w", err)
	}

	return name, nil
}
