package sql

import (
	"github.com/tigerroll/setwave/pkg/batch/core/domain/model"
)

// --- Mapper functions ---

func fromDomainRunExecution(re *model.RunExecution) *RunExecutionEntity {
	if re == nil {
		return nil
	}
	return &RunExecutionEntity{
		ID:             re.ID,
		RunID:          re.RunID,
		RunName:        re.RunName,
		Query:          re.Query,
		TemplateDigest: re.TemplateDigest,
		State:          re.State,
		StartTime:      re.StartTime,
		EndTime:        re.EndTime,
		ChunkCount:     re.ChunkCount,
		FailureCount:   re.FailureCount,
		Failures:       re.Failures,
		CreateTime:     re.CreateTime,
		LastUpdated:    re.LastUpdated,
		Version:        re.Version,
	}
}

func toDomainRunExecution(entity *RunExecutionEntity) *model.RunExecution {
	if entity == nil {
		return nil
	}
	re := &model.RunExecution{
		ID:             entity.ID,
		RunID:          entity.RunID,
		RunName:        entity.RunName,
		Query:          entity.Query,
		TemplateDigest: entity.TemplateDigest,
		State:          entity.State,
		StartTime:      entity.StartTime,
		EndTime:        entity.EndTime,
		ChunkCount:     entity.ChunkCount,
		FailureCount:   entity.FailureCount,
		Failures:       entity.Failures,
		CreateTime:     entity.CreateTime,
		LastUpdated:    entity.LastUpdated,
		Version:        entity.Version,
	}
	if re.Failures == nil {
		re.Failures = make(model.ErrorLog, 0)
	}
	return re
}

func fromDomainChunkExecution(ce *model.ChunkExecution) *ChunkExecutionEntity {
	if ce == nil {
		return nil
	}
	return &ChunkExecutionEntity{
		ID:             ce.ID,
		RunExecutionID: ce.RunExecutionID,
		Sequence:       ce.Sequence,
		Descriptor:     ce.Descriptor,
		RecordCount:    ce.RecordCount,
		Succeeded:      ce.Succeeded,
		FailureKind:    ce.FailureKind,
		FailureDetail:  ce.FailureDetail,
		SubmittedAt:    ce.SubmittedAt,
		CompletedAt:    ce.CompletedAt,
		LastUpdated:    ce.LastUpdated,
		Version:        ce.Version,
	}
}

func toDomainChunkExecution(entity *ChunkExecutionEntity) *model.ChunkExecution {
	if entity == nil {
		return nil
	}
	return &model.ChunkExecution{
		ID:             entity.ID,
		RunExecutionID: entity.RunExecutionID,
		Sequence:       entity.Sequence,
		Descriptor:     entity.Descriptor,
		RecordCount:    entity.RecordCount,
		Succeeded:      entity.Succeeded,
		FailureKind:    entity.FailureKind,
		FailureDetail:  entity.FailureDetail,
		SubmittedAt:    entity.SubmittedAt,
		CompletedAt:    entity.CompletedAt,
		LastUpdated:    entity.LastUpdated,
		Version:        entity.Version,
	}
}
