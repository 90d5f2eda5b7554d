// Package dummy provides dummy implementations for database-related interfaces.
// These implementations are intended for use in DB-less environments or for testing purposes,
// where actual database operations are not required.
package dummy

import (
	"go.uber.org/fx"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	"github.com/tigerroll/setwave/pkg/batch/core/tx"
)

// NewDummyTxManagerFactory returns the dummy TransactionManagerFactory.
func NewDummyTxManagerFactory() tx.TransactionManagerFactory {
	return &DummyTxManagerFactory{}
}

// NewMetadataTxManager provides the "metadata" TransactionManager.
// In DB-less mode, it always returns a dummy manager from the dummy factory.
func NewMetadataTxManager(factory tx.TransactionManagerFactory) tx.TransactionManager {
	return factory.NewTransactionManager(nil) // A nil connection is passed as it's a dummy.
}

// Module is an Fx module that provides dummy DB-related implementations.
var Module = fx.Options(
	fx.Provide(NewDummyTxManagerFactory),
	fx.Provide(fx.Annotate(
		NewMetadataTxManager,
		fx.ResultTags(`name:"metadata"`),
	)),
	fx.Provide(fx.Annotate(
		NewDefaultDBConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
		fx.As(new(coreAdapter.ResourceConnectionResolver)),
	)),
)
