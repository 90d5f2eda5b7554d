// Package migration provides the schema migration runner for the execution
// journal and application databases.
package migration

import (
	"go.uber.org/fx"

	"github.com/tigerroll/setwave/pkg/batch/component/migration/drivers"
)

// Module provides the Migrator factory and the startup migration Runner.
var Module = fx.Options(
	fx.Provide(NewMigratorProvider),
	fx.Provide(NewRunner),
	drivers.Module, // Registers golang-migrate database drivers.
)
