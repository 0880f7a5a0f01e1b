// Package migrations embeds SQL migration files into the binary so the
// server can migrate its schema without shipping loose SQL files.
package migrations

import (
	"embed"

	"github.com/farsign/farsign-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files are at root of embedded FS
}
