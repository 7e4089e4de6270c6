package specification

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByPaymentStatus struct {
	Status string
}

func (s ByPaymentStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("payment_status = ?", s.Status)
}

type ByPurchaseID struct {
	PurchaseID uuid.UUID
}

func (s ByPurchaseID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("purchase_id = ?", s.PurchaseID)
}

// ByReference resolves a provider reference against the current transaction
// id or the reference history kept in metadata.
type ByReference struct {
	Reference string
}

func (s ByReference) Apply(db *gorm.DB) *gorm.DB {
	history, _ := json.Marshal([]string{s.Reference})
	return db.Where("(transaction_id = ? OR metadata->'references' @> ?::jsonb)", s.Reference, string(history))
}
