package contract

import (
	"context"
	"errors"
	"time"

	"planhub-be/internal/entity"
	"planhub-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ErrLiveTokenExists is returned by Create when the purchase already has a
// live token, which happens when two link requests race.
var ErrLiveTokenExists = errors.New("purchase already has a live download token")

type DownloadTokenRepository interface {
	Create(ctx context.Context, token *entity.DownloadToken) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DownloadToken, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DownloadToken, error)

	// HasConsumed reports whether any token of the purchase was redeemed.
	HasConsumed(ctx context.Context, purchaseID uuid.UUID) (bool, error)

	// InvalidateUnused marks live tokens as used without touching their counter.
	// A nil purchaseID targets the caller's own unbound tokens for the plan.
	InvalidateUnused(ctx context.Context, purchaseID *uuid.UUID, userID, planID uuid.UUID) (int64, error)

	// Consume increments the usage counter if the token is still live.
	Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}
