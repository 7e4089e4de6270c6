package implementation

import (
	"context"
	"errors"

	"planhub-be/internal/entity"
	"planhub-be/internal/mapper"
	"planhub-be/internal/model"
	"planhub-be/internal/repository/contract"
	"planhub-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewUserRepository(db *gorm.DB) contract.UserRepository {
	return &UserRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *UserRepositoryImpl) scoped(ctx context.Context, specs ...specification.Specification) *gorm.DB {
	db := r.db.WithContext(ctx)
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Create relies on the unique email index; the pre-check in the service can race.
func (r *UserRepositoryImpl) Create(ctx context.Context, user *entity.User) error {
	row := r.mapper.ToModel(user)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return contract.ErrEmailTaken
		}
		return err
	}
	*user = *r.mapper.ToEntity(row)
	return nil
}

// Update writes profile and status columns only. Role and email are immutable.
func (r *UserRepositoryImpl) Update(ctx context.Context, user *entity.User) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", user.Id).
		Updates(map[string]interface{}{
			"full_name":     user.FullName,
			"password_hash": user.PasswordHash,
			"status":        string(user.Status),
			"updated_at":    user.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	var row model.User
	if err := r.scoped(ctx, specs...).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&row), nil
}

func (r *UserRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	var rows []*model.User
	if err := r.scoped(ctx, specs...).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(rows), nil
}

func (r *UserRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	if err := r.scoped(ctx, specs...).Model(&model.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepositoryImpl) CreateRefreshToken(ctx context.Context, token *entity.UserRefreshToken) error {
	row := r.mapper.UserRefreshTokenToModel(token)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	*token = *r.mapper.UserRefreshTokenToEntity(row)
	return nil
}

func (r *UserRepositoryImpl) FindRefreshToken(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error) {
	var row model.UserRefreshToken
	if err := r.scoped(ctx, specs...).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.UserRefreshTokenToEntity(&row), nil
}

func (r *UserRepositoryImpl) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).
		Model(&model.UserRefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
}

func (r *UserRepositoryImpl) RevokeUserSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.UserRefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}
