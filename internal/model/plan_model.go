package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Plan struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DesignerId        uuid.UUID      `gorm:"type:uuid;not null;index"`
	Name              string         `gorm:"type:varchar(255);not null"`
	Description       string         `gorm:"type:text"`
	Category          string         `gorm:"type:varchar(100);index"`
	Price             float64        `gorm:"type:decimal(12,2);not null;default:0"`
	DeliverablePrices datatypes.JSON `gorm:"type:jsonb"`
	Status            string         `gorm:"type:varchar(20);not null;default:'Draft';index"`
	SalesCount        int            `gorm:"not null;default:0"`
	Files             []PlanFile     `gorm:"foreignKey:PlanId;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
}

func (Plan) TableName() string {
	return "plans"
}

type PlanFile struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PlanId    uuid.UUID `gorm:"type:uuid;not null;index"`
	FileType  string    `gorm:"type:varchar(50);not null"`
	FileName  string    `gorm:"type:varchar(255);not null"`
	FileURL   string    `gorm:"type:text;not null"`
	FileSize  int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (PlanFile) TableName() string {
	return "plan_files"
}
