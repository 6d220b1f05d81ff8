package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/skitrax/skitrax-telemetry-service/internal/domain/entity"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.ExtractionJob) error
	Update(ctx context.Context, job *entity.ExtractionJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ExtractionJob, error)
}
