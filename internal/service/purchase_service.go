package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"planhub-be/internal/apperr"
	"planhub-be/internal/dto"
	"planhub-be/internal/entity"
	"planhub-be/internal/events"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/repository/specification"
	"planhub-be/internal/repository/unitofwork"
	"planhub-be/pkg/payment"

	"github.com/google/uuid"
)

type IPurchaseService interface {
	InitiatePurchase(ctx context.Context, userId uuid.UUID, req *dto.InitiatePurchaseRequest) (*dto.InitiatePurchaseResponse, error)
	ListMyPurchases(ctx context.Context, userId uuid.UUID) ([]dto.PurchaseResponse, error)
	GetEntitlement(ctx context.Context, userId, planId uuid.UUID) (*dto.EntitlementResponse, error)
	ListPurchases(ctx context.Context, filter dto.PurchaseFilter) (*dto.PurchaseListResponse, error)
}

type purchaseService struct {
	uowFactory  unitofwork.RepositoryFactory
	gateways    *payment.Registry
	callbackURL string
	publisher   events.Publisher
	logger      logger.ILogger
}

func NewPurchaseService(
	uowFactory unitofwork.RepositoryFactory,
	gateways *payment.Registry,
	callbackURL string,
	publisher events.Publisher,
	logger logger.ILogger,
) IPurchaseService {
	return &purchaseService{
		uowFactory:  uowFactory,
		gateways:    gateways,
		callbackURL: callbackURL,
		publisher:   publisher,
		logger:      logger,
	}
}

// ownedEntitlement unions the user's completed purchases of a plan. Zero
// priced deliverables come along once anything has been bought.
func ownedEntitlement(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, plan *entity.Plan) (entity.Entitlement, bool, error) {
	completed, err := uow.PurchaseRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByPlanID{PlanID: plan.Id},
		specification.ByPaymentStatus{Status: string(entity.PaymentStatusCompleted)},
	)
	if err != nil {
		return entity.Entitlement{}, false, fmt.Errorf("load completed purchases: %w", err)
	}
	if len(completed) == 0 {
		return entity.Entitlement{}, false, nil
	}
	owned := entity.DeriveEntitlement(completed)
	if free := plan.FreeDeliverables(); len(free) > 0 {
		owned = owned.Union(entity.Deliverables(free...))
	}
	return owned, true, nil
}

// resolveSelection turns the requested deliverables into what the buyer is
// actually charged for.
func resolveSelection(plan *entity.Plan, owned entity.Entitlement, requested []string) (entity.Entitlement, float64, error) {
	if owned.IsFull() {
		return entity.Entitlement{}, 0, apperr.Conflict("already purchased")
	}

	if len(requested) == 0 {
		return entity.FullPlan(), plan.Price, nil
	}

	if !plan.HasDeliverablePricing() {
		return entity.Entitlement{}, 0, apperr.BadRequest("plan is only sold as a whole")
	}

	seen := make(map[string]bool, len(requested))
	var keys []string
	for _, key := range requested {
		if _, ok := plan.DeliverablePrices[key]; !ok {
			return entity.Entitlement{}, 0, apperr.BadRequest(fmt.Sprintf("deliverable %q is not sold with this plan", key))
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	missing := owned.Missing(keys)
	if len(missing) == 0 {
		return entity.Entitlement{}, 0, apperr.Conflict("already purchased")
	}
	return entity.Deliverables(missing...), plan.SumDeliverables(missing), nil
}

func (s *purchaseService) InitiatePurchase(ctx context.Context, userId uuid.UUID, req *dto.InitiatePurchaseRequest) (*dto.InitiatePurchaseResponse, error) {
	gateway, err := s.gateways.Get(req.PaymentMethod)
	if err != nil {
		return nil, apperr.BadRequest("unsupported payment method")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: req.PlanId})
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil || plan.Status != entity.PlanStatusAvailable {
		return nil, apperr.NotFound("plan not found")
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}

	owned, _, err := ownedEntitlement(ctx, uow, userId, plan)
	if err != nil {
		return nil, err
	}

	selection, amount, err := resolveSelection(plan, owned, req.Deliverables)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, apperr.BadRequest("nothing to pay for")
	}

	pending, err := uow.PurchaseRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByPlanID{PlanID: plan.Id},
		specification.ByPaymentStatus{Status: string(entity.PaymentStatusPending)},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, fmt.Errorf("load pending purchases: %w", err)
	}

	var purchase *entity.Purchase
	for _, p := range pending {
		if p.Selection.Equal(selection) {
			purchase = p
			break
		}
	}

	purchaseId := uuid.New()
	if purchase != nil {
		purchaseId = purchase.Id
	}

	// The provider is called before anything is written so a failed
	// initialization leaves no trace.
	reference := payment.NewReference()
	initRes, err := gateway.Initialize(ctx, payment.InitRequest{
		Reference:    reference,
		Email:        user.Email,
		CustomerName: user.FullName,
		ItemName:     plan.Name,
		AmountMinor:  payment.ToMinorUnits(amount),
		Currency:     gateway.Currency(),
		CallbackURL:  s.callbackURL,
		Metadata: payment.Metadata{
			PlanID:     plan.Id.String(),
			UserID:     userId.String(),
			PurchaseID: purchaseId.String(),
		},
	})
	if errors.Is(err, payment.ErrUnsupportedAmount) {
		return nil, apperr.BadRequest(fmt.Sprintf("amount cannot be charged through %s", gateway.Name()))
	}
	if err != nil {
		s.logger.Error("PAYMENT", "Gateway initialization failed", map[string]interface{}{
			"provider": gateway.Name(),
			"plan_id":  plan.Id.String(),
			"error":    err.Error(),
		})
		return nil, apperr.BadGateway("payment provider unavailable", err)
	}
	if initRes.Reference != "" {
		reference = initRes.Reference
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	now := time.Now()
	if purchase != nil {
		// The provider call above is slow; a webhook may have settled the
		// row meanwhile, so work from a locked fresh copy.
		locked, err := uow.PurchaseRepository().FindOne(ctx,
			specification.ByID{ID: purchase.Id},
			specification.ForUpdate{},
		)
		if err != nil {
			return nil, fmt.Errorf("lock pending purchase: %w", err)
		}
		if locked == nil || locked.IsCompleted() {
			return nil, apperr.Conflict("already purchased")
		}
		purchase = locked
		purchase.Metadata.AddReference(purchase.TransactionId)
		purchase.Metadata.AddReference(reference)
		purchase.TransactionId = reference
		purchase.Amount = amount
		purchase.PaymentMethod = gateway.Name()
		purchase.UpdatedAt = now
		swapped, err := uow.PurchaseRepository().RetryPending(ctx, purchase)
		if err != nil {
			return nil, fmt.Errorf("update pending purchase: %w", err)
		}
		if !swapped {
			return nil, apperr.Conflict("already purchased")
		}
	} else {
		purchase = &entity.Purchase{
			Id:            purchaseId,
			UserId:        userId,
			PlanId:        plan.Id,
			Amount:        amount,
			PaymentMethod: gateway.Name(),
			PaymentStatus: entity.PaymentStatusPending,
			TransactionId: reference,
			Selection:     selection,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		purchase.Metadata.AddReference(reference)
		if err := uow.PurchaseRepository().Create(ctx, purchase); err != nil {
			return nil, fmt.Errorf("create purchase: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.publisher.PublishPurchaseInitiated(ctx, purchase.Id, userId, plan.Id, reference, amount)

	return &dto.InitiatePurchaseResponse{
		PurchaseId:       purchase.Id,
		Reference:        reference,
		AuthorizationURL: initRes.AuthorizationURL,
		AccessCode:       initRes.AccessCode,
		Amount:           amount,
		Currency:         gateway.Currency(),
	}, nil
}

func (s *purchaseService) ListMyPurchases(ctx context.Context, userId uuid.UUID) ([]dto.PurchaseResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	purchases, err := uow.PurchaseRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	names, err := s.planNames(ctx, uow, purchases)
	if err != nil {
		return nil, err
	}

	res := make([]dto.PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		res = append(res, toPurchaseResponse(p, names[p.PlanId]))
	}
	return res, nil
}

func (s *purchaseService) GetEntitlement(ctx context.Context, userId, planId uuid.UUID) (*dto.EntitlementResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: planId})
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return nil, apperr.NotFound("plan not found")
	}

	owned, bought, err := ownedEntitlement(ctx, uow, userId, plan)
	if err != nil {
		return nil, err
	}

	deliverables := owned.Keys()
	if deliverables == nil {
		deliverables = []string{}
	}
	free := plan.FreeDeliverables()
	if free == nil {
		free = []string{}
	}

	return &dto.EntitlementResponse{
		PlanId:           planId,
		Owned:            bought,
		FullPlan:         owned.IsFull(),
		Deliverables:     deliverables,
		FreeDeliverables: free,
	}, nil
}

func (s *purchaseService) ListPurchases(ctx context.Context, filter dto.PurchaseFilter) (*dto.PurchaseListResponse, error) {
	filter.Normalize()

	var specs []specification.Specification
	switch filter.Status {
	case "":
	case string(entity.PaymentStatusPending), string(entity.PaymentStatusCompleted):
		specs = append(specs, specification.ByPaymentStatus{Status: filter.Status})
	default:
		return nil, apperr.BadRequest("unknown payment status")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	total, err := uow.PurchaseRepository().Count(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("count purchases: %w", err)
	}

	purchases, err := uow.PurchaseRepository().FindAll(ctx, append(specs,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: filter.Limit, Offset: (filter.Page - 1) * filter.Limit},
	)...)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	names, err := s.planNames(ctx, uow, purchases)
	if err != nil {
		return nil, err
	}

	items := make([]dto.PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		items = append(items, toPurchaseResponse(p, names[p.PlanId]))
	}
	return &dto.PurchaseListResponse{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *purchaseService) planNames(ctx context.Context, uow unitofwork.UnitOfWork, purchases []*entity.Purchase) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string)
	if len(purchases) == 0 {
		return names, nil
	}

	var ids []uuid.UUID
	for _, p := range purchases {
		if _, ok := names[p.PlanId]; !ok {
			names[p.PlanId] = ""
			ids = append(ids, p.PlanId)
		}
	}

	plans, err := uow.PlanRepository().FindAll(ctx, specification.ByIDs{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("load plans: %w", err)
	}
	for _, p := range plans {
		names[p.Id] = p.Name
	}
	return names, nil
}

func toPurchaseResponse(p *entity.Purchase, planName string) dto.PurchaseResponse {
	return dto.PurchaseResponse{
		Id:            p.Id,
		UserId:        p.UserId,
		PlanId:        p.PlanId,
		PlanName:      planName,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: string(p.PaymentStatus),
		Reference:     p.TransactionId,
		OrderId:       p.Metadata.OrderID,
		FullPlan:      p.Selection.IsFull(),
		Deliverables:  p.Selection.Keys(),
		CompletedAt:   p.CompletedAt,
		CreatedAt:     p.CreatedAt,
	}
}
