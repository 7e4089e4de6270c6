package contract

import (
	"context"

	"planhub-be/internal/entity"
	"planhub-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *entity.Plan) error
	Update(ctx context.Context, plan *entity.Plan) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Plan, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Plan, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	CreateFile(ctx context.Context, file *entity.PlanFile) error
	IncrementSalesCount(ctx context.Context, planID uuid.UUID) error
}
