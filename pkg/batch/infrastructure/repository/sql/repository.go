package sql

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/setwave/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	"github.com/tigerroll/setwave/pkg/batch/core/config"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/setwave/pkg/batch/core/domain/repository"
	tx "github.com/tigerroll/setwave/pkg/batch/core/tx"
	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
)

// SQLExecutionRepository implements the repository.ExecutionRepository interface.
type SQLExecutionRepository struct {
	dbResolver coreAdapter.ResourceConnectionResolver // dbResolver is used to resolve database connections. It is expected to resolve to a database.DBConnectionResolver.
	// TxManager is the transaction manager for the database.
	TxManager tx.TransactionManager
	// dbName is the name of the database connection used by this ExecutionRepository (e.g., "metadata").
	dbName string
}

// NewSQLExecutionRepository creates a new instance of SQLExecutionRepository.
//
// Parameters:
//
//	dbResolver: The database connection resolver.
//	txManager: The transaction manager for the database.
//	dbName: The name of the database connection to be used by this repository (e.g., "metadata").
//
// Returns:
//
//	A new instance of repository.ExecutionRepository.
func NewSQLExecutionRepository(
	dbResolver coreAdapter.ResourceConnectionResolver,
	txManager tx.TransactionManager,
	dbName string,
) repository.ExecutionRepository {
	return &SQLExecutionRepository{
		dbResolver: dbResolver,
		TxManager:  txManager,
		dbName:     dbName,
	}
}

// getDBConnection is a helper function to get the DBConnection used by the ExecutionRepository.
// This is used for operations that do not require an active transaction (e.g., ExecuteQueryAdvanced, Count).
func (r *SQLExecutionRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	// Use ResourceConnectionResolver to always get the latest ResourceConnection.
	connAsResource, err := r.dbResolver.ResolveConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError("SQLExecutionRepository", fmt.Sprintf("Failed to resolve DB connection '%s'", r.dbName), err, false, false)
	}
	conn, ok := connAsResource.(database.DBConnection)
	if !ok {
		return nil, exception.NewBatchError("SQLExecutionRepository", fmt.Sprintf("Resolved connection '%s' is not a database.DBConnection", r.dbName), nil, false, false)
	}
	return conn, nil
}

// getTxExecutor checks if a Tx exists in the context.
// If a transaction is found in the context, it returns the Tx (which implements TxExecutor);
// otherwise, it returns the DBConnection (which also implements TxExecutor).
// This is used for write operations (ExecuteUpdate).
func (r *SQLExecutionRepository) getTxExecutor(ctx context.Context) (tx.TxExecutor, error) {
	if t, ok := tx.FromContext(ctx); ok {
		return t, nil // If a transaction exists in the context, use it.
	}
	// If no transaction is found in the context, use the direct DBConnection.
	return r.getDBConnection(ctx)
}

// --- RunExecution implementation ---

func (r *SQLExecutionRepository) SaveRunExecution(ctx context.Context, execution *model.RunExecution) error {
	const op = "SQLExecutionRepository.SaveRunExecution"
	entity := fromDomainRunExecution(execution)

	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return err
	}

	_, err = executor.ExecuteUpdate(ctx, entity, "CREATE", entity.TableName(), nil)

	if err != nil {
		if executor.IsTableNotExistError(err) { // If the table does not exist, it means migrations haven't been run yet.
			// The journal is advisory, so the record is silently dropped.
			return nil
		}
		return exception.NewBatchError(op, fmt.Sprintf("failed to save RunExecution (ID: %s)", execution.ID), err, true, false)
	}
	return nil
}

func (r *SQLExecutionRepository) UpdateRunExecution(ctx context.Context, execution *model.RunExecution) error {
	const op = "SQLExecutionRepository.UpdateRunExecution"

	originalVersion := execution.Version
	execution.Version++
	execution.LastUpdated = time.Now()
	entity := fromDomainRunExecution(execution)

	tableName := entity.TableName()
	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return err
	}

	rowsAffected, err := executor.ExecuteUpdate(
		ctx,
		entity,
		"UPDATE",
		tableName,
		map[string]interface{}{"version": originalVersion},
	)
	if err != nil {
		if executor.IsTableNotExistError(err) { // If table does not exist, ignore.
			execution.Version = originalVersion // Rollback version
			return nil
		}
		execution.Version = originalVersion // Rollback version
		return exception.NewBatchError(op, fmt.Sprintf("failed to update RunExecution (ID: %s)", execution.ID), err, true, false)
	}
	if rowsAffected == 0 {
		execution.Version = originalVersion // Rollback version
		return exception.NewOptimisticLockingFailureException("repository", fmt.Sprintf("RunExecution (ID: %s) with version %d not found for update", execution.ID, originalVersion), nil)
	}
	return nil
}

func (r *SQLExecutionRepository) FindRunExecutionByID(ctx context.Context, executionID string) (*model.RunExecution, error) {
	const op = "SQLExecutionRepository.FindRunExecutionByID"
	var entity RunExecutionEntity

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	err = conn.ExecuteQueryAdvanced(ctx, &entity, map[string]interface{}{"id": executionID}, "", 1)

	if err != nil {
		if conn.IsTableNotExistError(err) { // If the table does not exist, treat it as not found.
			// This can happen if the ExecutionRepository is accessed before migrations are run.
			return nil, repository.ErrRunExecutionNotFound
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find RunExecution by ID: %s", executionID), err, true, false)
	}

	if entity.ID == "" {
		return nil, repository.ErrRunExecutionNotFound
	}

	return toDomainRunExecution(&entity), nil
}

func (r *SQLExecutionRepository) FindLatestRunExecutionByName(ctx context.Context, runName string) (*model.RunExecution, error) {
	const op = "SQLExecutionRepository.FindLatestRunExecutionByName"
	var entity RunExecutionEntity

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	err = conn.ExecuteQueryAdvanced(ctx, &entity, map[string]interface{}{"run_name": runName}, "create_time desc", 1)

	if err != nil {
		if conn.IsTableNotExistError(err) { // If the table does not exist, treat it as not found.
			return nil, repository.ErrRunExecutionNotFound
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find latest RunExecution for run name: %s", runName), err, true, false)
	}

	if entity.ID == "" {
		return nil, repository.ErrRunExecutionNotFound
	}

	return toDomainRunExecution(&entity), nil
}

// CountRunExecutionsByName implements repository.RunExecution.
func (r *SQLExecutionRepository) CountRunExecutionsByName(ctx context.Context, runName string) (int, error) {
	const op = "SQLExecutionRepository.CountRunExecutionsByName"

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return 0, err
	}
	count, err := conn.Count(ctx, &RunExecutionEntity{}, map[string]interface{}{"run_name": runName})
	if err != nil {
		if conn.IsTableNotExistError(err) {
			return 0, nil
		}
		return 0, exception.NewBatchError(op, "failed to count RunExecutions", err, true, false)
	}
	return int(count), nil
}

// --- ChunkExecution implementation ---

func (r *SQLExecutionRepository) SaveChunkExecution(ctx context.Context, execution *model.ChunkExecution) error {
	const op = "SQLExecutionRepository.SaveChunkExecution"
	entity := fromDomainChunkExecution(execution)

	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return err
	}

	_, err = executor.ExecuteUpdate(ctx, entity, "CREATE", entity.TableName(), nil)

	if err != nil {
		if executor.IsTableNotExistError(err) { // If table does not exist, ignore.
			return nil
		}
		return exception.NewBatchError(op, fmt.Sprintf("failed to save ChunkExecution (ID: %s)", execution.ID), err, true, false)
	}
	return nil
}

func (r *SQLExecutionRepository) UpdateChunkExecution(ctx context.Context, execution *model.ChunkExecution) error {
	const op = "SQLExecutionRepository.UpdateChunkExecution"

	originalVersion := execution.Version
	execution.Version++
	execution.LastUpdated = time.Now()
	entity := fromDomainChunkExecution(execution)

	tableName := entity.TableName()
	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return err
	}

	rowsAffected, err := executor.ExecuteUpdate(
		ctx,
		entity,
		"UPDATE",
		tableName,
		map[string]interface{}{"version": originalVersion},
	)
	if err != nil {
		if executor.IsTableNotExistError(err) { // If table does not exist, ignore.
			execution.Version = originalVersion
			return nil
		}
		execution.Version = originalVersion
		return exception.NewBatchError(op, fmt.Sprintf("failed to update ChunkExecution (ID: %s)", execution.ID), err, true, false)
	}
	if rowsAffected == 0 {
		execution.Version = originalVersion
		return exception.NewOptimisticLockingFailureException("repository", fmt.Sprintf("ChunkExecution (ID: %s) with version %d not found for update", execution.ID, originalVersion), nil)
	}
	return nil
}

// FindChunkExecutionsByRunExecutionID retrieves all ChunkExecutions associated with a RunExecution.
func (r *SQLExecutionRepository) FindChunkExecutionsByRunExecutionID(ctx context.Context, runExecutionID string) ([]*model.ChunkExecution, error) {
	const op = "SQLExecutionRepository.FindChunkExecutionsByRunExecutionID"
	var entities []ChunkExecutionEntity

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	err = conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"run_execution_id": runExecutionID}, "sequence asc", 0)

	if err != nil {
		if conn.IsTableNotExistError(err) { // If the table does not exist, return an empty slice.
			// This can happen if the ExecutionRepository is accessed before migrations are run.
			return []*model.ChunkExecution{}, nil
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find ChunkExecutions by RunExecution ID: %s", runExecutionID), err, true, false)
	}

	domainExecutions := make([]*model.ChunkExecution, len(entities))
	for i, entity := range entities {
		domainExecutions[i] = toDomainChunkExecution(&entity)
	}

	return domainExecutions, nil
}

// Close implements repository.ExecutionRepository.
func (r *SQLExecutionRepository) Close() error {
	// The underlying DBConnection is managed by the DBProvider and its lifecycle,
	// so it is not closed directly by the repository.
	return nil
}

// Verify that SQLExecutionRepository implements all embedded interfaces of repository.ExecutionRepository.
var _ repository.ExecutionRepository = (*SQLExecutionRepository)(nil)

// ExecutionRepositoryParams defines the dependencies required to create a NewExecutionRepository.
type ExecutionRepositoryParams struct {
	fx.In
	DBResolver coreAdapter.ResourceConnectionResolver // DBResolver is used to resolve database connections.
	// MetadataTxManager is the transaction manager for the metadata database.
	MetadataTxManager tx.TransactionManager `name:"metadata"`
	// Cfg is the application configuration.
	Cfg *config.Config
}

// NewExecutionRepository creates and returns an ExecutionRepository instance.
// This function is intended to be used as an Fx provider.
func NewExecutionRepository(p ExecutionRepositoryParams) repository.ExecutionRepository {
	// Determine the database connection name for the ExecutionRepository.
	// It defaults to "metadata" if not explicitly configured in Infrastructure.RunRepositoryDBRef.
	dbName := p.Cfg.Setwave.Infrastructure.RunRepositoryDBRef
	if dbName == "" {
		dbName = "metadata"
	}

	return NewSQLExecutionRepository(p.DBResolver, p.MetadataTxManager, dbName)
}
