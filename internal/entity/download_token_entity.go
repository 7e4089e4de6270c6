package entity

import (
	"time"

	"github.com/google/uuid"
)

type DownloadToken struct {
	Id            uuid.UUID
	Token         string
	UserId        uuid.UUID
	PlanId        uuid.UUID
	PurchaseId    *uuid.UUID // nil for admin and designer links
	IsUsed        bool
	DownloadCount int
	MaxDownloads  int
	ExpiresAt     time.Time
	UsedAt        *time.Time
	CreatedAt     time.Time
}

func (t *DownloadToken) LimitReached() bool {
	return t.DownloadCount >= t.MaxDownloads
}

// Redeemable is false for invalidated, exhausted or expired tokens.
func (t *DownloadToken) Redeemable(now time.Time) bool {
	return !t.IsUsed && !t.LimitReached() && now.Before(t.ExpiresAt)
}
