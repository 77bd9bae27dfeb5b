// Package migrations embeds the SQL schema migrations into the binary and
// hands them to the database package on import.
package migrations

import (
	"embed"

	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
