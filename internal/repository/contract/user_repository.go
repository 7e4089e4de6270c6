package contract

import (
	"context"
	"errors"

	"planhub-be/internal/entity"
	"planhub-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ErrEmailTaken is returned by Create when the unique email index rejects the row.
var ErrEmailTaken = errors.New("email already registered")

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	CreateRefreshToken(ctx context.Context, token *entity.UserRefreshToken) error
	FindRefreshToken(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	// RevokeUserSessions revokes every live refresh token of a user.
	RevokeUserSessions(ctx context.Context, userID uuid.UUID) (int64, error)
}
