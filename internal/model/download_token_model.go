package model

import (
	"time"

	"github.com/google/uuid"
)

type DownloadToken struct {
	Id            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Token         string     `gorm:"type:varchar(128);uniqueIndex;not null"`
	UserId        uuid.UUID  `gorm:"type:uuid;not null;index"`
	PlanId        uuid.UUID  `gorm:"type:uuid;not null;index"`
	PurchaseId    *uuid.UUID `gorm:"type:uuid;index"`
	IsUsed        bool       `gorm:"not null;default:false"`
	DownloadCount int        `gorm:"not null;default:0"`
	MaxDownloads  int        `gorm:"not null;default:1"`
	ExpiresAt     time.Time  `gorm:"not null"`
	UsedAt        *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (DownloadToken) TableName() string {
	return "download_tokens"
}
