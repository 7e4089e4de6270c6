package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

const (
	PaymentMethodPaystack = "paystack"
	PaymentMethodMidtrans = "midtrans"
)

// PurchaseMetadata is persisted as jsonb on the purchase row.
type PurchaseMetadata struct {
	References    []string `json:"references,omitempty"`
	LastReference string   `json:"last_reference,omitempty"`
	OrderID       string   `json:"order_id,omitempty"`
}

func (m PurchaseMetadata) HasReference(ref string) bool {
	for _, r := range m.References {
		if r == ref {
			return true
		}
	}
	return false
}

// AddReference appends ref once; history is never rewritten.
func (m *PurchaseMetadata) AddReference(ref string) {
	if ref == "" {
		return
	}
	if !m.HasReference(ref) {
		m.References = append(m.References, ref)
	}
	m.LastReference = ref
}

type Purchase struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	PlanId        uuid.UUID
	Amount        float64
	PaymentMethod string
	PaymentStatus PaymentStatus
	TransactionId string
	Selection     Entitlement
	Metadata      PurchaseMetadata
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *Purchase) IsCompleted() bool {
	return p.PaymentStatus == PaymentStatusCompleted
}

// MatchesReference checks the current transaction id and the reference history.
func (p *Purchase) MatchesReference(ref string) bool {
	return p.TransactionId == ref || p.Metadata.HasReference(ref)
}

// NewOrderID derives a stable, human readable order number.
func NewOrderID(purchaseID uuid.UUID, at time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(purchaseID.String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), short)
}
