// FILE: internal/dto/auth_payment_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Auth DTOs ---

type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=customer designer"`
}

type RegisterResponse struct {
	Id    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time           `json:"expires_at"`
	User         UserProfileResponse `json:"user"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// --- Payment DTOs ---

type VerifyPaymentRequest struct {
	Reference string `json:"reference" validate:"required"`
}

// CompletionResponse reports the outcome of one completion attempt.
type CompletionResponse struct {
	Message    string     `json:"message"`
	Code       int        `json:"code"`
	Soft       bool       `json:"soft"`
	Already    bool       `json:"already_completed"`
	PurchaseId *uuid.UUID `json:"purchase_id,omitempty"`
	OrderId    string     `json:"order_id,omitempty"`
}
