// Package migrations embeds SQL migration files into the binary.
//
// Files follow the NNNN_name.up.sql / NNNN_name.down.sql convention and are
// registered with the database package on import.
package migrations

import (
	"embed"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
