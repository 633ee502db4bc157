package job

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"jan-server/services/flow-api/internal/domain/generation"
	"jan-server/services/flow-api/internal/infrastructure/database/entities"
	"jan-server/services/flow-api/internal/utils/platformerrors"
)

// Repository persists the job log in Postgres.
type Repository struct {
	db *gorm.DB
}

var _ generation.JobRepository = (*Repository)(nil)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, job *generation.Job) error {
	entity := toEntity(job)
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create generation job",
			err,
			"3e1b7c40-9a5d-4f2e-8b6c-7d0a1f2e3c4b",
		)
	}
	job.CreatedAt = entity.CreatedAt
	job.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, operationName, status, mediaURL string) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if mediaURL != "" {
		updates["media_url"] = mediaURL
	}
	result := r.db.WithContext(ctx).
		Model(&entities.GenerationJob{}).
		Where("operation_name = ?", operationName).
		Updates(updates)
	if result.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update generation job",
			result.Error,
			"8c4d2a19-6e3f-4b5a-9d7c-1a2b3c4d5e6f",
		)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"generation job not found",
			nil,
			"5b9e0f27-2c4d-4a6e-8f1b-3d5c7e9a0b2d",
		)
	}
	return nil
}

func (r *Repository) FindByOperation(ctx context.Context, operationName string) (*generation.Job, error) {
	var entity entities.GenerationJob
	err := r.db.WithContext(ctx).
		Where("operation_name = ?", operationName).
		Order("created_at DESC").
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find generation job",
			err,
			"a7d3c1e5-0b2f-4e8a-9c6d-4f1e2a3b5c7d",
		)
	}
	job := mapEntity(entity)
	return &job, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]generation.Job, error) {
	var rows []entities.GenerationJob
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list generation jobs",
			err,
			"d2f8e4a6-1c3b-4d5e-a7f9-0b1c2d3e4f5a",
		)
	}
	jobs := make([]generation.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, mapEntity(row))
	}
	return jobs, nil
}

func toEntity(job *generation.Job) entities.GenerationJob {
	return entities.GenerationJob{
		ID:            job.ID,
		Kind:          string(job.Kind),
		OperationName: job.OperationName,
		SceneID:       job.SceneID,
		ProjectID:     job.ProjectID,
		ModelKey:      job.ModelKey,
		Prompt:        job.Prompt,
		Status:        job.Status,
		MediaURL:      job.MediaURL,
	}
}

func mapEntity(entity entities.GenerationJob) generation.Job {
	return generation.Job{
		ID:            entity.ID,
		Kind:          generation.JobKind(entity.Kind),
		OperationName: entity.OperationName,
		SceneID:       entity.SceneID,
		ProjectID:     entity.ProjectID,
		ModelKey:      entity.ModelKey,
		Prompt:        entity.Prompt,
		Status:        entity.Status,
		MediaURL:      entity.MediaURL,
		CreatedAt:     entity.CreatedAt,
		UpdatedAt:     entity.UpdatedAt,
	}
}
