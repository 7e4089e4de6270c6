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

	"gorm.io/gorm"
)

type PurchaseRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PurchaseMapper
}

func NewPurchaseRepository(db *gorm.DB) contract.PurchaseRepository {
	return &PurchaseRepositoryImpl{
		db:     db,
		mapper: mapper.NewPurchaseMapper(),
	}
}

func (r *PurchaseRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PurchaseRepositoryImpl) Create(ctx context.Context, purchase *entity.Purchase) error {
	m, err := r.mapper.ToModel(purchase)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	saved, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*purchase = *saved
	return nil
}

func (r *PurchaseRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Purchase, error) {
	var m model.Purchase
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.mapper.ToEntity(&m)
}

func (r *PurchaseRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Purchase, error) {
	var models []*model.Purchase
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	return r.mapper.ToEntities(models)
}

func (r *PurchaseRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Purchase{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PurchaseRepositoryImpl) MarkCompleted(ctx context.Context, purchase *entity.Purchase) (bool, error) {
	metadata, err := mapper.EncodeMetadata(purchase.Metadata)
	if err != nil {
		return false, err
	}

	completedAt := time.Now()
	if purchase.CompletedAt != nil {
		completedAt = *purchase.CompletedAt
	}

	result := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Where("id = ? AND payment_status <> ?", purchase.Id, string(entity.PaymentStatusCompleted)).
		Updates(map[string]interface{}{
			"payment_status": string(entity.PaymentStatusCompleted),
			"transaction_id": purchase.TransactionId,
			"metadata":       metadata,
			"completed_at":   completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected != 1 {
		return false, nil
	}

	purchase.PaymentStatus = entity.PaymentStatusCompleted
	purchase.CompletedAt = &completedAt
	return true, nil
}

// RetryPending never touches status, completion time or selection, so a
// retry racing a settlement cannot roll the row back.
func (r *PurchaseRepositoryImpl) RetryPending(ctx context.Context, purchase *entity.Purchase) (bool, error) {
	metadata, err := mapper.EncodeMetadata(purchase.Metadata)
	if err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Where("id = ? AND payment_status = ?", purchase.Id, string(entity.PaymentStatusPending)).
		Updates(map[string]interface{}{
			"transaction_id": purchase.TransactionId,
			"amount":         purchase.Amount,
			"payment_method": purchase.PaymentMethod,
			"metadata":       metadata,
			"updated_at":     purchase.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
