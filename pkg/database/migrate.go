package database

import (
	"context"
	"embed"
	"strings"

	"github.com/rotisserie/eris"
)

//go:embed schema_sqlite.sql schema_postgres.sql
var schemaFS embed.FS

// Migrate applies the idempotent schema for the handle's driver.
func Migrate(db *DB) error {
	name := "schema_sqlite.sql"
	if db.Driver != DriverSQLite {
		name = "schema_postgres.sql"
	}

	b, err := schemaFS.ReadFile(name)
	if err != nil {
		return eris.Wrapf(err, "read %s", name)
	}

	ctx := context.Background()
	for _, stmt := range strings.Split(string(b), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "apply %s", name)
		}
	}
	return nil
}
