package dto

import (
	"time"

	"github.com/google/uuid"
)

// DownloadLinkRequest takes exactly one of plan_id or purchase_id.
type DownloadLinkRequest struct {
	PlanId     *uuid.UUID `json:"plan_id"`
	PurchaseId *uuid.UUID `json:"purchase_id"`
}

type DownloadLinkResponse struct {
	Token       string    `json:"token"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RedeemResult describes an archive already written to the caller's writer.
type RedeemResult struct {
	FileName     string
	FilesAdded   int
	FilesSkipped int
}
