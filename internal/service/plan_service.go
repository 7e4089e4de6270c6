// FILE: internal/service/plan_service.go
// Catalog management: plans, their files and public browsing.
package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"planhub-be/internal/apperr"
	"planhub-be/internal/dto"
	"planhub-be/internal/entity"
	"planhub-be/internal/events"
	"planhub-be/internal/repository/memory"
	"planhub-be/internal/repository/specification"
	"planhub-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IPlanService interface {
	CreatePlan(ctx context.Context, actorId uuid.UUID, req *dto.CreatePlanRequest) (*dto.PlanResponse, error)
	UpdatePlan(ctx context.Context, actorId uuid.UUID, role string, planId uuid.UUID, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error)
	AddPlanFile(ctx context.Context, actorId uuid.UUID, role string, planId uuid.UUID, req *dto.AddPlanFileRequest) (*dto.PlanFileResponse, error)
	GetPlan(ctx context.Context, viewerId uuid.UUID, role string, planId uuid.UUID) (*dto.PlanResponse, error)
	ListPlans(ctx context.Context, filter dto.PlanFilter) (*dto.PlanListResponse, error)
	ListDesignerPlans(ctx context.Context, designerId uuid.UUID) ([]dto.PlanResponse, error)
}

type planService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *memory.PlanCache
	publisher  events.Publisher
}

func NewPlanService(uowFactory unitofwork.RepositoryFactory, cache *memory.PlanCache, publisher events.Publisher) IPlanService {
	return &planService{
		uowFactory: uowFactory,
		cache:      cache,
		publisher:  publisher,
	}
}

func validateDeliverablePrices(prices map[string]float64) error {
	for key, price := range prices {
		if !entity.IsDeliverableKey(key) {
			return apperr.BadRequest(fmt.Sprintf("unknown deliverable %q", key))
		}
		if price < 0 {
			return apperr.BadRequest(fmt.Sprintf("deliverable %q has a negative price", key))
		}
	}
	return nil
}

func sumPrices(prices map[string]float64) float64 {
	var total float64
	for _, p := range prices {
		total += p
	}
	return math.Round(total*100) / 100
}

func (s *planService) CreatePlan(ctx context.Context, actorId uuid.UUID, req *dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	if err := validateDeliverablePrices(req.DeliverablePrices); err != nil {
		return nil, err
	}

	status := entity.PlanStatus(req.Status)
	if status == "" {
		status = entity.PlanStatusDraft
	}

	plan := &entity.Plan{
		Id:                uuid.New(),
		DesignerId:        actorId,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		Category:          req.Category,
		Price:             math.Round(req.Price*100) / 100,
		DeliverablePrices: req.DeliverablePrices,
		Status:            status,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	if plan.HasDeliverablePricing() {
		plan.Price = sumPrices(plan.DeliverablePrices)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.PlanRepository().Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	if plan.Status == entity.PlanStatusAvailable {
		s.publisher.PublishPlanPublished(ctx, plan.Id, plan.DesignerId, plan.Name)
	}

	resp := toPlanResponse(plan)
	return &resp, nil
}

func (s *planService) loadEditable(ctx context.Context, uow unitofwork.UnitOfWork, actorId uuid.UUID, role string, planId uuid.UUID) (*entity.Plan, error) {
	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: planId})
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return nil, apperr.NotFound("plan not found")
	}
	if role != string(entity.UserRoleAdmin) && !plan.IsOwnedBy(actorId) {
		return nil, apperr.Forbidden("not the plan owner")
	}
	return plan, nil
}

func (s *planService) UpdatePlan(ctx context.Context, actorId uuid.UUID, role string, planId uuid.UUID, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	plan, err := s.loadEditable(ctx, uow, actorId, role, planId)
	if err != nil {
		return nil, err
	}
	wasAvailable := plan.Status == entity.PlanStatusAvailable

	if req.Name != nil {
		plan.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.Category != nil {
		plan.Category = *req.Category
	}
	if req.Status != nil {
		plan.Status = entity.PlanStatus(*req.Status)
	}
	if req.Price != nil {
		plan.Price = math.Round(*req.Price*100) / 100
	}
	if req.DeliverablePrices != nil {
		if err := validateDeliverablePrices(req.DeliverablePrices); err != nil {
			return nil, err
		}
		plan.DeliverablePrices = req.DeliverablePrices
	}
	if plan.HasDeliverablePricing() {
		plan.Price = sumPrices(plan.DeliverablePrices)
	}
	plan.UpdatedAt = time.Now()

	if err := uow.PlanRepository().Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}
	s.cache.Invalidate(plan.Id)

	if !wasAvailable && plan.Status == entity.PlanStatusAvailable {
		s.publisher.PublishPlanPublished(ctx, plan.Id, plan.DesignerId, plan.Name)
	}

	resp := toPlanResponse(plan)
	return &resp, nil
}

func (s *planService) AddPlanFile(ctx context.Context, actorId uuid.UUID, role string, planId uuid.UUID, req *dto.AddPlanFileRequest) (*dto.PlanFileResponse, error) {
	fileType := entity.FileType(strings.ToUpper(req.FileType))
	if !fileType.Valid() {
		return nil, apperr.BadRequest(fmt.Sprintf("unknown file type %q", req.FileType))
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	plan, err := s.loadEditable(ctx, uow, actorId, role, planId)
	if err != nil {
		return nil, err
	}

	file := &entity.PlanFile{
		Id:        uuid.New(),
		PlanId:    plan.Id,
		FileType:  fileType,
		FileName:  req.FileName,
		FileURL:   req.FileURL,
		FileSize:  req.FileSize,
		CreatedAt: time.Now(),
	}
	if err := uow.PlanRepository().CreateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("create plan file: %w", err)
	}
	s.cache.Invalidate(plan.Id)

	resp := toPlanFileResponse(file)
	return &resp, nil
}

// GetPlan hides drafts from everyone but the owner and admins.
func (s *planService) GetPlan(ctx context.Context, viewerId uuid.UUID, role string, planId uuid.UUID) (*dto.PlanResponse, error) {
	if cached, ok := s.cache.Get(planId); ok {
		resp := toPlanResponse(cached)
		return &resp, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: planId}, specification.WithFiles{})
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return nil, apperr.NotFound("plan not found")
	}

	if plan.Status != entity.PlanStatusAvailable {
		if role != string(entity.UserRoleAdmin) && !plan.IsOwnedBy(viewerId) {
			return nil, apperr.NotFound("plan not found")
		}
	} else {
		s.cache.Set(plan)
	}

	resp := toPlanResponse(plan)
	return &resp, nil
}

func (s *planService) ListPlans(ctx context.Context, filter dto.PlanFilter) (*dto.PlanListResponse, error) {
	filter.Normalize()

	specs := []specification.Specification{
		specification.ByPlanStatus{Status: string(entity.PlanStatusAvailable)},
	}
	if filter.Category != "" {
		specs = append(specs, specification.ByCategory{Category: filter.Category})
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		specs = append(specs, specification.PlanSearchQuery{Query: q})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	total, err := uow.PlanRepository().Count(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("count plans: %w", err)
	}

	pageSpecs := append(specs,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: filter.Limit, Offset: (filter.Page - 1) * filter.Limit},
	)
	plans, err := uow.PlanRepository().FindAll(ctx, pageSpecs...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	items := make([]dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		items = append(items, toPlanResponse(p))
	}
	return &dto.PlanListResponse{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *planService) ListDesignerPlans(ctx context.Context, designerId uuid.UUID) ([]dto.PlanResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	plans, err := uow.PlanRepository().FindAll(ctx,
		specification.ByDesignerID{DesignerID: designerId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, fmt.Errorf("list designer plans: %w", err)
	}

	items := make([]dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		items = append(items, toPlanResponse(p))
	}
	return items, nil
}

func toPlanResponse(p *entity.Plan) dto.PlanResponse {
	resp := dto.PlanResponse{
		Id:                p.Id,
		DesignerId:        p.DesignerId,
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		Price:             p.Price,
		DeliverablePrices: p.DeliverablePrices,
		Status:            string(p.Status),
		SalesCount:        p.SalesCount,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	for _, f := range p.Files {
		resp.Files = append(resp.Files, toPlanFileResponse(f))
	}
	sort.SliceStable(resp.Files, func(i, j int) bool {
		return resp.Files[i].CreatedAt.Before(resp.Files[j].CreatedAt)
	})
	return resp
}

// File locations stay server side; downloads go through tokens.
func toPlanFileResponse(f *entity.PlanFile) dto.PlanFileResponse {
	key, _ := f.FileType.DeliverableKey()
	return dto.PlanFileResponse{
		Id:          f.Id,
		FileType:    string(f.FileType),
		FileName:    f.FileName,
		FileSize:    f.FileSize,
		Deliverable: key,
		CreatedAt:   f.CreatedAt,
	}
}
