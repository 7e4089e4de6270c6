package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"planhub-be/internal/apperr"
	"planhub-be/internal/dto"
	"planhub-be/internal/entity"
	"planhub-be/internal/events"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/repository/memory"
	"planhub-be/internal/repository/specification"
	"planhub-be/internal/repository/unitofwork"
	"planhub-be/pkg/payment"
)

// ICompletionService settles a purchase from a provider's view of the
// payment. Every trigger (webhook, user verify, admin verify) goes through
// Complete and nothing else.
type ICompletionService interface {
	Complete(ctx context.Context, reference string, txn *payment.Transaction) (*dto.CompletionResponse, error)
}

type completionService struct {
	uowFactory unitofwork.RepositoryFactory
	gateways   *payment.Registry
	cache      *memory.PlanCache
	publisher  events.Publisher
	logger     logger.ILogger
	now        func() time.Time
}

func NewCompletionService(
	uowFactory unitofwork.RepositoryFactory,
	gateways *payment.Registry,
	cache *memory.PlanCache,
	publisher events.Publisher,
	logger logger.ILogger,
) ICompletionService {
	return &completionService{
		uowFactory: uowFactory,
		gateways:   gateways,
		cache:      cache,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// metadataMatches compares echoed identifiers; empty echoes are ignored.
func metadataMatches(meta payment.Metadata, purchase *entity.Purchase) bool {
	if meta.PlanID != "" && !strings.EqualFold(meta.PlanID, purchase.PlanId.String()) {
		return false
	}
	if meta.UserID != "" && !strings.EqualFold(meta.UserID, purchase.UserId.String()) {
		return false
	}
	if meta.PurchaseID != "" && !strings.EqualFold(meta.PurchaseID, purchase.Id.String()) {
		return false
	}
	return true
}

func (s *completionService) Complete(ctx context.Context, reference string, txn *payment.Transaction) (*dto.CompletionResponse, error) {
	if txn == nil || !txn.Successful() {
		return nil, apperr.BadRequest("payment not successful")
	}
	if txn.PaidAt == nil {
		return nil, apperr.Pending("payment not yet settled")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	purchase, err := uow.PurchaseRepository().FindOne(ctx,
		specification.ByReference{Reference: reference},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, fmt.Errorf("resolve purchase: %w", err)
	}
	if purchase == nil {
		return nil, apperr.NotFound("purchase not found")
	}

	if purchase.IsCompleted() {
		return alreadyCompleted(purchase), nil
	}

	if !metadataMatches(txn.Metadata, purchase) {
		s.logger.Warn("COMPLETION", "Metadata echo does not match purchase", map[string]interface{}{
			"reference":   reference,
			"purchase_id": purchase.Id.String(),
			"echo":        txn.Metadata,
		})
		return nil, apperr.Conflict("payment metadata mismatch")
	}
	gateway, err := s.gateways.Get(purchase.PaymentMethod)
	if err != nil {
		return nil, apperr.Conflict("payment provider not configured")
	}
	if !strings.EqualFold(txn.Currency, gateway.Currency()) {
		s.logger.Warn("COMPLETION", "Currency mismatch", map[string]interface{}{
			"reference": reference,
			"provider":  gateway.Name(),
			"expected":  gateway.Currency(),
			"paid":      txn.Currency,
		})
		return nil, apperr.Conflict("currency mismatch")
	}
	if expected := payment.ToMinorUnits(purchase.Amount); txn.AmountMinor != expected {
		s.logger.Warn("COMPLETION", "Amount mismatch", map[string]interface{}{
			"reference": reference,
			"expected":  expected,
			"paid":      txn.AmountMinor,
		})
		return nil, apperr.Conflict("amount mismatch")
	}

	now := s.now()
	purchase.Metadata.AddReference(reference)
	if purchase.Metadata.OrderID == "" {
		purchase.Metadata.OrderID = entity.NewOrderID(purchase.Id, now)
	}
	if purchase.CompletedAt == nil {
		purchase.CompletedAt = &now
	}

	updated, err := uow.PurchaseRepository().MarkCompleted(ctx, purchase)
	if err != nil {
		return nil, fmt.Errorf("mark purchase completed: %w", err)
	}
	if !updated {
		// Another trigger settled it between our read and write.
		return alreadyCompleted(purchase), nil
	}

	if err := uow.PlanRepository().IncrementSalesCount(ctx, purchase.PlanId); err != nil {
		return nil, fmt.Errorf("increment sales count: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("COMPLETION", "Purchase completed", map[string]interface{}{
		"purchase_id": purchase.Id.String(),
		"reference":   reference,
		"order_id":    purchase.Metadata.OrderID,
	})

	s.afterCommit(ctx, purchase, reference, gateway.Currency())

	purchaseId := purchase.Id
	return &dto.CompletionResponse{
		Message:    "payment verified",
		Code:       http.StatusOK,
		PurchaseId: &purchaseId,
		OrderId:    purchase.Metadata.OrderID,
	}, nil
}

func alreadyCompleted(purchase *entity.Purchase) *dto.CompletionResponse {
	purchaseId := purchase.Id
	return &dto.CompletionResponse{
		Message:    "purchase already completed",
		Code:       http.StatusOK,
		Already:    true,
		PurchaseId: &purchaseId,
		OrderId:    purchase.Metadata.OrderID,
	}
}

// afterCommit is best effort: the purchase is already settled.
func (s *completionService) afterCommit(ctx context.Context, purchase *entity.Purchase, reference, currency string) {
	s.cache.Invalidate(purchase.PlanId)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	evt := events.PurchaseCompleted{
		PurchaseId:  purchase.Id,
		UserId:      purchase.UserId,
		PlanId:      purchase.PlanId,
		OrderId:     purchase.Metadata.OrderID,
		Reference:   reference,
		Amount:      purchase.Amount,
		Currency:    currency,
		Entitlement: purchase.Selection.String(),
	}

	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: purchase.PlanId})
	if err != nil {
		s.logger.Warn("COMPLETION", "Could not load plan for event", map[string]interface{}{"error": err.Error()})
	} else if plan != nil {
		evt.PlanName = plan.Name
		evt.DesignerId = plan.DesignerId
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: purchase.UserId})
	if err != nil {
		s.logger.Warn("COMPLETION", "Could not load buyer for event", map[string]interface{}{"error": err.Error()})
	} else if user != nil {
		evt.Email = user.Email
		evt.FullName = user.FullName
	}

	s.publisher.PublishPurchaseCompleted(ctx, evt)
}

// resolvePurchase finds the row a reference belongs to without locking it.
func resolvePurchase(ctx context.Context, uow unitofwork.UnitOfWork, reference string) (*entity.Purchase, error) {
	purchase, err := uow.PurchaseRepository().FindOne(ctx, specification.ByReference{Reference: reference})
	if err != nil {
		return nil, fmt.Errorf("resolve purchase: %w", err)
	}
	if purchase == nil {
		return nil, apperr.NotFound("purchase not found")
	}
	return purchase, nil
}
