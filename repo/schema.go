package repo

import (
	"context"
	"fmt"

	"usersock/db"
)

// Bootstrap DDL per driver. Idempotent; run once at process start before the
// first request is served. Managed environments use cmd/migrate instead.
var usersTableDDL = map[string]string{
	"postgres": `
		CREATE TABLE IF NOT EXISTS users (
			id    SERIAL PRIMARY KEY,
			name  VARCHAR NOT NULL,
			email VARCHAR NOT NULL
		)`,
	"mysql": `
		CREATE TABLE IF NOT EXISTS users (
			id    INT AUTO_INCREMENT PRIMARY KEY,
			name  VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL
		)`,
	"sqlite3": `
		CREATE TABLE IF NOT EXISTS users (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			name  TEXT NOT NULL,
			email TEXT NOT NULL
		)`,
}

// EnsureSchema creates the users table if it does not exist.
func EnsureSchema(ctx context.Context, q db.Querier, driverName string) error {
	ddl, ok := usersTableDDL[driverName]
	if !ok {
		return fmt.Errorf("repo: no users table DDL for driver %q", driverName)
	}
	if _, err := q.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("repo: ensure schema: %w", err)
	}
	return nil
}
