package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByPlanID struct {
	PlanID uuid.UUID
}

func (s ByPlanID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("plan_id = ?", s.PlanID)
}

type ByDesignerID struct {
	DesignerID uuid.UUID
}

func (s ByDesignerID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("designer_id = ?", s.DesignerID)
}

type ByPlanStatus struct {
	Status string
}

func (s ByPlanStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category ILIKE ?", s.Category)
}

// PlanSearchQuery matches name or description, case-insensitive.
type PlanSearchQuery struct {
	Query string
}

func (s PlanSearchQuery) Apply(db *gorm.DB) *gorm.DB {
	pattern := "%" + s.Query + "%"
	return db.Where("(name ILIKE ? OR description ILIKE ?)", pattern, pattern)
}

// WithFiles preloads plan_files ordered by creation.
type WithFiles struct{}

func (s WithFiles) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload("Files", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("plan_files.created_at ASC")
	})
}
