package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Purchase struct {
	Id                   uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId               uuid.UUID      `gorm:"type:uuid;not null;index:idx_purchases_user_plan,priority:1"`
	PlanId               uuid.UUID      `gorm:"type:uuid;not null;index:idx_purchases_user_plan,priority:2"`
	Amount               float64        `gorm:"type:decimal(12,2);not null"`
	PaymentMethod        string         `gorm:"type:varchar(30);not null"`
	PaymentStatus        string         `gorm:"type:varchar(20);not null;default:'pending';index"`
	TransactionId        string         `gorm:"type:varchar(100);uniqueIndex;not null"`
	SelectedDeliverables datatypes.JSON `gorm:"type:jsonb"`
	Metadata             datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	CompletedAt          *time.Time
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (Purchase) TableName() string {
	return "purchases"
}
