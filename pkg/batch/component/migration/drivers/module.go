package drivers

import (
	"go.uber.org/fx"

	// Blank imports for golang-migrate database drivers to ensure they are registered.
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
)

// Module carries the blank imports for golang-migrate database drivers.
// Including it in the application graph registers the drivers with the
// golang-migrate library.
var Module = fx.Options()
