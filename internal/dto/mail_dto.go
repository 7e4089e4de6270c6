package dto

import "time"

const (
	MailKindDownloadLink    = "download_link"
	MailKindPurchaseReceipt = "purchase_receipt"
)

// MailMessage is the payload carried on the mail outbox topic.
type MailMessage struct {
	Kind         string    `json:"kind"`
	To           string    `json:"to"`
	Name         string    `json:"name"`
	PlanName     string    `json:"plan_name"`
	Link         string    `json:"link,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	OrderId      string    `json:"order_id,omitempty"`
	Amount       float64   `json:"amount,omitempty"`
	Currency     string    `json:"currency,omitempty"`
	Deliverables string    `json:"deliverables,omitempty"`
}
