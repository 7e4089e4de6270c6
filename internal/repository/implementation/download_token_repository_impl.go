package implementation

import (
	"context"
	"errors"
	"time"

	"planhub-be/internal/entity"
	"planhub-be/internal/mapper"
	"planhub-be/internal/model"
	"planhub-be/internal/repository/contract"
	"planhub-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DownloadTokenRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DownloadTokenMapper
}

func NewDownloadTokenRepository(db *gorm.DB) contract.DownloadTokenRepository {
	return &DownloadTokenRepositoryImpl{
		db:     db,
		mapper: mapper.NewDownloadTokenMapper(),
	}
}

func (r *DownloadTokenRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DownloadTokenRepositoryImpl) Create(ctx context.Context, token *entity.DownloadToken) error {
	m := r.mapper.ToModel(token)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return contract.ErrLiveTokenExists
		}
		return err
	}
	*token = *r.mapper.ToEntity(m)
	return nil
}

func (r *DownloadTokenRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DownloadToken, error) {
	var m model.DownloadToken
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.mapper.ToEntity(&m), nil
}

func (r *DownloadTokenRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DownloadToken, error) {
	var models []*model.DownloadToken
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	return r.mapper.ToEntities(models), nil
}

func (r *DownloadTokenRepositoryImpl) HasConsumed(ctx context.Context, purchaseID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DownloadToken{}).
		Where("purchase_id = ? AND download_count >= 1", purchaseID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *DownloadTokenRepositoryImpl) InvalidateUnused(ctx context.Context, purchaseID *uuid.UUID, userID, planID uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.DownloadToken{}).Where("is_used = ?", false)
	if purchaseID != nil {
		query = query.Where("purchase_id = ?", *purchaseID)
	} else {
		query = query.Where("purchase_id IS NULL AND user_id = ? AND plan_id = ?", userID, planID)
	}

	result := query.UpdateColumn("is_used", true)
	return result.RowsAffected, result.Error
}

func (r *DownloadTokenRepositoryImpl) Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.DownloadToken{}).
		Where("id = ? AND is_used = ? AND download_count < max_downloads", id, false).
		UpdateColumns(map[string]interface{}{
			"download_count": gorm.Expr("download_count + 1"),
			"is_used":        gorm.Expr("download_count + 1 >= max_downloads"),
			"used_at":        at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
