package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserProfileResponse struct {
	Id        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type AdminUserFilter struct {
	Role  string `query:"role"`
	Page  int    `query:"page"`
	Limit int    `query:"limit"`
}

func (f *AdminUserFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

type AdminUserListResponse struct {
	Items []UserProfileResponse `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

type UpdateUserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active blocked"`
}
