package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreatePlanRequest struct {
	Name              string             `json:"name" validate:"required,min=3,max=255"`
	Description       string             `json:"description"`
	Category          string             `json:"category" validate:"max=100"`
	Price             float64            `json:"price" validate:"gte=0"`
	DeliverablePrices map[string]float64 `json:"deliverable_prices" validate:"omitempty,dive,gte=0"`
	Status            string             `json:"status" validate:"omitempty,oneof=Available Draft"`
}

// UpdatePlanRequest is a partial update; nil fields are left untouched.
type UpdatePlanRequest struct {
	Name              *string            `json:"name" validate:"omitempty,min=3,max=255"`
	Description       *string            `json:"description"`
	Category          *string            `json:"category" validate:"omitempty,max=100"`
	Price             *float64           `json:"price" validate:"omitempty,gte=0"`
	DeliverablePrices map[string]float64 `json:"deliverable_prices" validate:"omitempty,dive,gte=0"`
	Status            *string            `json:"status" validate:"omitempty,oneof=Available Draft"`
}

type AddPlanFileRequest struct {
	FileType string `json:"file_type" validate:"required"`
	FileName string `json:"file_name" validate:"required,max=255"`
	FileURL  string `json:"file_url" validate:"required"`
	FileSize int64  `json:"file_size" validate:"gte=0"`
}

type PlanFilter struct {
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
	Category string `query:"category"`
	Search   string `query:"search"`
}

func (f *PlanFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

type PlanFileResponse struct {
	Id          uuid.UUID `json:"id"`
	FileType    string    `json:"file_type"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	Deliverable string    `json:"deliverable,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type PlanResponse struct {
	Id                uuid.UUID          `json:"id"`
	DesignerId        uuid.UUID          `json:"designer_id"`
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	Category          string             `json:"category"`
	Price             float64            `json:"price"`
	DeliverablePrices map[string]float64 `json:"deliverable_prices,omitempty"`
	Status            string             `json:"status"`
	SalesCount        int                `json:"sales_count"`
	Files             []PlanFileResponse `json:"files,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

type PlanListResponse struct {
	Items []PlanResponse `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
