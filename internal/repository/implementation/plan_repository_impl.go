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

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PlanMapper
}

func NewPlanRepository(db *gorm.DB) contract.PlanRepository {
	return &PlanRepositoryImpl{
		db:     db,
		mapper: mapper.NewPlanMapper(),
	}
}

func (r *PlanRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *entity.Plan) error {
	m, err := r.mapper.ToModel(plan)
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
	saved.Files = plan.Files
	*plan = *saved
	return nil
}

// Update writes the plan row only. Files are managed through CreateFile.
func (r *PlanRepositoryImpl) Update(ctx context.Context, plan *entity.Plan) error {
	m, err := r.mapper.ToModel(plan)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Omit("Files").Save(m).Error; err != nil {
		return err
	}
	plan.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *PlanRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Plan, error) {
	var m model.Plan
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.mapper.ToEntity(&m)
}

func (r *PlanRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Plan, error) {
	var models []*model.Plan
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	return r.mapper.ToEntities(models)
}

func (r *PlanRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Plan{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PlanRepositoryImpl) CreateFile(ctx context.Context, file *entity.PlanFile) error {
	m := r.mapper.FileToModel(file)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*file = *r.mapper.FileToEntity(m)
	return nil
}

func (r *PlanRepositoryImpl) IncrementSalesCount(ctx context.Context, planID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Plan{}).
		Where("id = ?", planID).
		UpdateColumn("sales_count", gorm.Expr("sales_count + ?", 1)).Error
}
