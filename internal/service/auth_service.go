// FILE: internal/service/auth_service.go
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"planhub-be/internal/apperr"
	"planhub-be/internal/config"
	"planhub-be/internal/dto"
	"planhub-be/internal/entity"
	"planhub-be/internal/events"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/repository/contract"
	"planhub-be/internal/repository/specification"
	"planhub-be/internal/repository/unitofwork"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, ipAddress, userAgent string) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*dto.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error)
	SeedAdmin(ctx context.Context, email, password, fullName string) (*dto.RegisterResponse, error)
}

type authService struct {
	uowFactory unitofwork.RepositoryFactory
	cfg        config.AuthConfig
	publisher  events.Publisher
	logger     logger.ILogger
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, cfg config.AuthConfig, publisher events.Publisher, log logger.ILogger) IAuthService {
	return &authService{
		uowFactory: uowFactory,
		cfg:        cfg,
		publisher:  publisher,
		logger:     log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	role := entity.UserRole(req.Role)
	if role == "" {
		role = entity.UserRoleCustomer
	}
	if role != entity.UserRoleCustomer && role != entity.UserRoleDesigner {
		return nil, apperr.BadRequest("role must be customer or designer")
	}

	user, err := s.createUser(ctx, normalizeEmail(req.Email), req.Password, strings.TrimSpace(req.FullName), role)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishUserRegistered(ctx, user.Id, user.Email, user.FullName, string(user.Role))
	return &dto.RegisterResponse{Id: user.Id, Email: user.Email, Role: string(user.Role)}, nil
}

// SeedAdmin is only reachable from the operator CLI.
func (s *authService) SeedAdmin(ctx context.Context, email, password, fullName string) (*dto.RegisterResponse, error) {
	if len(password) < 8 {
		return nil, apperr.BadRequest("password must be at least 8 characters")
	}
	user, err := s.createUser(ctx, normalizeEmail(email), password, fullName, entity.UserRoleAdmin)
	if err != nil {
		return nil, err
	}
	return &dto.RegisterResponse{Id: user.Id, Email: user.Email, Role: string(user.Role)}, nil
}

func (s *authService) createUser(ctx context.Context, email, password, fullName string, role entity.UserRole) (*entity.User, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: &hashStr,
		Role:         role,
		Status:       entity.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		if errors.Is(err, contract.ErrEmailTaken) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, ipAddress, userAgent string) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: normalizeEmail(req.Email)})
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || user.PasswordHash == nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if user.Status == entity.UserStatusBlocked {
		return nil, apperr.Forbidden("user account is blocked")
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	resp, err := s.issueSession(ctx, uow, user, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("AUTH", "User logged in", map[string]interface{}{"user_id": user.Id, "role": user.Role})
	return resp, nil
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued in the same transaction.
func (s *authService) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*dto.LoginResponse, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized("missing refresh token")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	tokenHash := hashToken(refreshToken)
	stored, err := uow.UserRepository().FindRefreshToken(ctx, specification.ByTokenHash{Hash: tokenHash}, specification.ForUpdate{})
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if stored == nil || stored.Revoked || time.Now().After(stored.ExpiresAt) {
		return nil, apperr.Unauthorized("invalid refresh token")
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: stored.UserId})
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || user.Status != entity.UserStatusActive {
		return nil, apperr.Unauthorized("invalid refresh token")
	}

	if err := uow.UserRepository().RevokeRefreshToken(ctx, tokenHash); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	resp, err := s.issueSession(ctx, uow, user, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *authService) issueSession(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User, ipAddress, userAgent string) (*dto.LoginResponse, error) {
	accessToken, expiresAt, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}

	rawRefreshToken := uuid.New().String()
	refresh := &entity.UserRefreshToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		TokenHash: hashToken(rawRefreshToken),
		ExpiresAt: time.Now().Add(s.cfg.RefreshTokenTTL),
		CreatedAt: time.Now(),
		IpAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := uow.UserRepository().CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: rawRefreshToken,
		ExpiresAt:    expiresAt,
		User:         toUserProfile(user),
	}, nil
}

func (s *authService) signAccessToken(user *entity.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.cfg.AccessTokenTTL)
	claims := jwt.MapClaims{
		"user_id": user.Id.String(),
		"role":    string(user.Role),
		"exp":     expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.UserRepository().RevokeRefreshToken(ctx, hashToken(refreshToken))
}

func (s *authService) Me(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	profile := toUserProfile(user)
	return &profile, nil
}

func toUserProfile(user *entity.User) dto.UserProfileResponse {
	return dto.UserProfileResponse{
		Id:        user.Id,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      string(user.Role),
		Status:    string(user.Status),
		CreatedAt: user.CreatedAt,
	}
}
