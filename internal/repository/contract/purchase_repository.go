package contract

import (
	"context"

	"planhub-be/internal/entity"
	"planhub-be/internal/repository/specification"
)

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *entity.Purchase) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Purchase, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Purchase, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// MarkCompleted flips a pending row to completed in one conditional
	// statement. It reports false when the row was already completed.
	MarkCompleted(ctx context.Context, purchase *entity.Purchase) (bool, error)

	// RetryPending swaps the checkout fields of a row that is still pending.
	// It reports false, writing nothing, once the row has left pending.
	RetryPending(ctx context.Context, purchase *entity.Purchase) (bool, error)
}
