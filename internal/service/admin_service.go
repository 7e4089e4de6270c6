package service

import (
	"context"
	"fmt"
	"time"

	"planhub-be/internal/apperr"
	"planhub-be/internal/dto"
	"planhub-be/internal/entity"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/repository/specification"
	"planhub-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IAdminService interface {
	ListUsers(ctx context.Context, filter dto.AdminUserFilter) (*dto.AdminUserListResponse, error)
	UpdateUserStatus(ctx context.Context, adminId, userId uuid.UUID, status string) (*dto.UserProfileResponse, error)
}

type adminService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewAdminService(uowFactory unitofwork.RepositoryFactory, logger logger.ILogger) IAdminService {
	return &adminService{
		uowFactory: uowFactory,
		logger:     logger,
	}
}

func (s *adminService) ListUsers(ctx context.Context, filter dto.AdminUserFilter) (*dto.AdminUserListResponse, error) {
	filter.Normalize()

	var specs []specification.Specification
	if filter.Role != "" {
		if !entity.UserRole(filter.Role).Valid() {
			return nil, apperr.BadRequest("unknown role")
		}
		specs = append(specs, specification.ByRole{Role: filter.Role})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	total, err := uow.UserRepository().Count(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	users, err := uow.UserRepository().FindAll(ctx, append(specs,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: filter.Limit, Offset: (filter.Page - 1) * filter.Limit},
	)...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	items := make([]dto.UserProfileResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserProfile(u))
	}
	return &dto.AdminUserListResponse{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// UpdateUserStatus blocks or reactivates an account. Blocked users keep
// their purchases but cannot log in or refresh sessions.
func (s *adminService) UpdateUserStatus(ctx context.Context, adminId, userId uuid.UUID, status string) (*dto.UserProfileResponse, error) {
	if adminId == userId {
		return nil, apperr.BadRequest("cannot change your own status")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}

	user.Status = entity.UserStatus(status)
	user.UpdatedAt = time.Now()
	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	var revoked int64
	if user.Status == entity.UserStatusBlocked {
		revoked, err = uow.UserRepository().RevokeUserSessions(ctx, userId)
		if err != nil {
			return nil, fmt.Errorf("revoke sessions: %w", err)
		}
	}

	s.logger.Info("ADMIN", "User status changed", map[string]interface{}{
		"admin_id":         adminId.String(),
		"user_id":          userId.String(),
		"status":           status,
		"revoked_sessions": revoked,
	})

	profile := toUserProfile(user)
	return &profile, nil
}
