package dto

import (
	"time"

	"github.com/google/uuid"
)

type InitiatePurchaseRequest struct {
	PlanId        uuid.UUID `json:"plan_id" validate:"required"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
	Deliverables  []string  `json:"deliverables" validate:"omitempty,dive,required"`
}

type InitiatePurchaseResponse struct {
	PurchaseId       uuid.UUID `json:"purchase_id"`
	Reference        string    `json:"reference"`
	AuthorizationURL string    `json:"authorization_url"`
	AccessCode       string    `json:"access_code,omitempty"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
}

type PurchaseResponse struct {
	Id            uuid.UUID  `json:"id"`
	UserId        uuid.UUID  `json:"user_id"`
	PlanId        uuid.UUID  `json:"plan_id"`
	PlanName      string     `json:"plan_name,omitempty"`
	Amount        float64    `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
	PaymentStatus string     `json:"payment_status"`
	Reference     string     `json:"reference"`
	OrderId       string     `json:"order_id,omitempty"`
	FullPlan      bool       `json:"full_plan"`
	Deliverables  []string   `json:"deliverables,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type EntitlementResponse struct {
	PlanId           uuid.UUID `json:"plan_id"`
	Owned            bool      `json:"owned"`
	FullPlan         bool      `json:"full_plan"`
	Deliverables     []string  `json:"deliverables"`
	FreeDeliverables []string  `json:"free_deliverables"`
}

type PurchaseFilter struct {
	Status string `query:"status"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

func (f *PurchaseFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

type PurchaseListResponse struct {
	Items []PurchaseResponse `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
