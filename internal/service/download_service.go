package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"planhub-be/internal/apperr"
	"planhub-be/internal/dto"
	"planhub-be/internal/entity"
	"planhub-be/internal/events"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/repository/contract"
	"planhub-be/internal/repository/specification"
	"planhub-be/internal/repository/unitofwork"
	"planhub-be/pkg/bundle"
	"planhub-be/pkg/quota"

	"github.com/google/uuid"
)

const maxDownloadsPerToken = 1

type IDownloadService interface {
	RequestLink(ctx context.Context, userId uuid.UUID, role string, req *dto.DownloadLinkRequest) (*dto.DownloadLinkResponse, error)
	Redeem(ctx context.Context, token string, w io.Writer) (*dto.RedeemResult, error)
}

type downloadService struct {
	uowFactory    unitofwork.RepositoryFactory
	baseURL       string
	tokenValidity time.Duration
	assembler     *bundle.Assembler
	quota         *quota.Counter
	mailQueue     IPublisherService
	publisher     events.Publisher
	logger        logger.ILogger
	now           func() time.Time
}

func NewDownloadService(
	uowFactory unitofwork.RepositoryFactory,
	baseURL string,
	tokenValidity time.Duration,
	assembler *bundle.Assembler,
	quota *quota.Counter,
	mailQueue IPublisherService,
	publisher events.Publisher,
	logger logger.ILogger,
) IDownloadService {
	return &downloadService{
		uowFactory:    uowFactory,
		baseURL:       strings.TrimRight(baseURL, "/"),
		tokenValidity: tokenValidity,
		assembler:     assembler,
		quota:         quota,
		mailQueue:     mailQueue,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

func generateDownloadToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *downloadService) downloadURL(token string) string {
	return s.baseURL + "/api/downloads/" + token
}

// authorize resolves which purchase a new token is bound to. A nil purchase
// means the caller bypasses ownership (admin, or the plan's designer).
func (s *downloadService) authorize(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, role string, req *dto.DownloadLinkRequest) (*entity.Plan, *entity.Purchase, error) {
	var purchase *entity.Purchase
	var planId uuid.UUID

	if req.PurchaseId != nil {
		p, err := uow.PurchaseRepository().FindOne(ctx, specification.ByID{ID: *req.PurchaseId})
		if err != nil {
			return nil, nil, fmt.Errorf("load purchase: %w", err)
		}
		if p == nil {
			return nil, nil, apperr.NotFound("purchase not found")
		}
		purchase = p
		planId = p.PlanId
	} else {
		planId = *req.PlanId
	}

	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: planId})
	if err != nil {
		return nil, nil, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return nil, nil, apperr.NotFound("plan not found")
	}

	if role == string(entity.UserRoleAdmin) || plan.IsOwnedBy(userId) {
		return plan, nil, nil
	}

	if purchase != nil {
		if purchase.UserId != userId {
			return nil, nil, apperr.Forbidden("purchase does not belong to you")
		}
		if !purchase.IsCompleted() {
			return nil, nil, apperr.Conflict("purchase not completed")
		}
		return plan, purchase, nil
	}

	latest, err := uow.PurchaseRepository().FindOne(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByPlanID{PlanID: plan.Id},
		specification.ByPaymentStatus{Status: string(entity.PaymentStatusCompleted)},
		specification.OrderBy{Field: "completed_at", Desc: true},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("load purchase: %w", err)
	}
	if latest == nil {
		return nil, nil, apperr.Forbidden("you have not purchased this plan")
	}
	return plan, latest, nil
}

func (s *downloadService) RequestLink(ctx context.Context, userId uuid.UUID, role string, req *dto.DownloadLinkRequest) (*dto.DownloadLinkResponse, error) {
	if (req.PlanId == nil) == (req.PurchaseId == nil) {
		return nil, apperr.BadRequest("provide exactly one of plan_id or purchase_id")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	plan, purchase, err := s.authorize(ctx, uow, userId, role, req)
	if err != nil {
		return nil, err
	}

	var purchaseId *uuid.UUID
	if purchase != nil {
		id := purchase.Id
		purchaseId = &id
	}

	value, err := generateDownloadToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	token := &entity.DownloadToken{
		Id:           uuid.New(),
		Token:        value,
		UserId:       userId,
		PlanId:       plan.Id,
		PurchaseId:   purchaseId,
		MaxDownloads: maxDownloadsPerToken,
		ExpiresAt:    now.Add(s.tokenValidity),
		CreatedAt:    now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if purchaseId != nil {
		consumed, err := uow.DownloadTokenRepository().HasConsumed(ctx, *purchaseId)
		if err != nil {
			return nil, fmt.Errorf("check consumed tokens: %w", err)
		}
		if consumed {
			return nil, apperr.Conflict("already downloaded")
		}
	}

	invalidated, err := uow.DownloadTokenRepository().InvalidateUnused(ctx, purchaseId, userId, plan.Id)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous tokens: %w", err)
	}
	if err := uow.DownloadTokenRepository().Create(ctx, token); err != nil {
		if errors.Is(err, contract.ErrLiveTokenExists) {
			// A concurrent request issued the purchase's link first.
			return nil, apperr.Conflict("download link already issued")
		}
		return nil, fmt.Errorf("create token: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("DOWNLOAD", "Download link issued", map[string]interface{}{
		"user_id":     userId.String(),
		"plan_id":     plan.Id.String(),
		"invalidated": invalidated,
	})

	link := s.downloadURL(value)
	s.publisher.PublishDownloadIssued(ctx, userId, plan.Id, purchaseId)
	s.mailLink(ctx, uow, userId, plan, link, token.ExpiresAt)

	return &dto.DownloadLinkResponse{
		Token:       value,
		DownloadURL: link,
		ExpiresAt:   token.ExpiresAt,
	}, nil
}

func (s *downloadService) mailLink(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, plan *entity.Plan, link string, expiresAt time.Time) {
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		s.logger.Warn("DOWNLOAD", "Skipping download link email, user not loaded", map[string]interface{}{"user_id": userId.String()})
		return
	}
	enqueueMail(ctx, s.mailQueue, s.logger, dto.MailMessage{
		Kind:      dto.MailKindDownloadLink,
		To:        user.Email,
		Name:      user.FullName,
		PlanName:  plan.Name,
		Link:      link,
		ExpiresAt: expiresAt,
	})
}

// Redeem writes the archive to w before consuming the token, so a failed
// build leaves the token usable.
func (s *downloadService) Redeem(ctx context.Context, value string, w io.Writer) (*dto.RedeemResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	token, err := uow.DownloadTokenRepository().FindOne(ctx, specification.ByToken{Token: value})
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if token == nil {
		return nil, apperr.NotFound("invalid or expired download link")
	}
	if token.LimitReached() {
		return nil, apperr.Conflict("download limit reached")
	}
	now := s.now()
	if !token.Redeemable(now) {
		return nil, apperr.NotFound("invalid or expired download link")
	}

	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: token.PlanId}, specification.WithFiles{})
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return nil, apperr.NotFound("plan not found")
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: token.UserId})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("invalid or expired download link")
	}

	filter, entitlement, orderId, err := s.filterFor(ctx, uow, token, plan)
	if err != nil {
		return nil, err
	}

	info := bundle.SummaryInfo{
		PlanID:        plan.Id.String(),
		PlanName:      plan.Name,
		Category:      plan.Category,
		Description:   plan.Description,
		DesignerName:  s.designerName(ctx, uow, plan),
		CustomerName:  user.FullName,
		CustomerEmail: user.Email,
		OrderID:       orderId,
		Entitlement:   entitlement,
		GeneratedAt:   now,
	}

	selected := bundle.Select(bundleFiles(plan), filter)
	if len(selected) == 0 {
		return nil, apperr.NotFound("files missing on server")
	}

	result, err := s.assembler.Build(ctx, w, selected, info)
	if err != nil {
		if errors.Is(err, bundle.ErrNoFiles) {
			s.logger.Error("BUNDLE", "No plan files could be fetched", map[string]interface{}{"plan_id": plan.Id.String()})
			return nil, apperr.NotFound("files missing on server")
		}
		return nil, fmt.Errorf("build bundle: %w", err)
	}
	for _, skipped := range result.Skipped {
		s.logger.Warn("BUNDLE", "Skipped plan file", map[string]interface{}{
			"plan_id": plan.Id.String(),
			"path":    skipped.Path,
			"reason":  skipped.Reason,
		})
	}

	consumed, err := uow.DownloadTokenRepository().Consume(ctx, token.Id, now)
	if err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	}
	if !consumed {
		return nil, apperr.Conflict("download limit reached")
	}

	if count, err := s.quota.Increment(ctx, user.Id); err != nil {
		s.logger.Warn("DOWNLOAD", "Failed to record download quota", map[string]interface{}{"error": err.Error()})
	} else {
		s.logger.Info("DOWNLOAD", "Download redeemed", map[string]interface{}{
			"user_id":       user.Id.String(),
			"plan_id":       plan.Id.String(),
			"monthly_count": count,
		})
	}
	s.publisher.PublishDownloadRedeemed(ctx, user.Id, plan.Id, len(result.Added))

	return &dto.RedeemResult{
		FileName:     bundle.ArchiveName(plan.Name),
		FilesAdded:   len(result.Added),
		FilesSkipped: len(result.Skipped),
	}, nil
}

// filterFor returns nil when the redeemer gets the whole plan.
func (s *downloadService) filterFor(ctx context.Context, uow unitofwork.UnitOfWork, token *entity.DownloadToken, plan *entity.Plan) (*bundle.Filter, string, string, error) {
	if token.PurchaseId == nil {
		return nil, entity.FullPlan().String(), "", nil
	}

	var orderId string
	purchase, err := uow.PurchaseRepository().FindOne(ctx, specification.ByID{ID: *token.PurchaseId})
	if err != nil {
		return nil, "", "", fmt.Errorf("load purchase: %w", err)
	}
	if purchase != nil {
		orderId = purchase.Metadata.OrderID
	}

	owned, bought, err := ownedEntitlement(ctx, uow, token.UserId, plan)
	if err != nil {
		return nil, "", "", err
	}
	if !bought {
		return nil, "", "", apperr.Forbidden("you have not purchased this plan")
	}
	if owned.IsFull() {
		return nil, owned.String(), orderId, nil
	}
	return &bundle.Filter{Keys: owned.Keys(), Free: plan.FreeDeliverables()}, owned.String(), orderId, nil
}

func (s *downloadService) designerName(ctx context.Context, uow unitofwork.UnitOfWork, plan *entity.Plan) string {
	designer, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: plan.DesignerId})
	if err != nil || designer == nil {
		return ""
	}
	return designer.FullName
}

func bundleFiles(plan *entity.Plan) []bundle.File {
	files := make([]bundle.File, 0, len(plan.Files))
	for _, f := range plan.Files {
		key, _ := f.FileType.DeliverableKey()
		files = append(files, bundle.File{
			Name:        f.FileName,
			FileType:    string(f.FileType),
			Deliverable: key,
			Location:    f.FileURL,
			Size:        f.FileSize,
		})
	}
	return files
}
