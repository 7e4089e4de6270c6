package controller

import (
	"planhub-be/internal/dto"
	"planhub-be/internal/entity"
	"planhub-be/internal/pkg/serverutils"
	"planhub-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPlanController interface {
	RegisterRoutes(r fiber.Router)
	ListPlans(ctx *fiber.Ctx) error
	GetPlan(ctx *fiber.Ctx) error
	CreatePlan(ctx *fiber.Ctx) error
	UpdatePlan(ctx *fiber.Ctx) error
	AddPlanFile(ctx *fiber.Ctx) error
	ListDesignerPlans(ctx *fiber.Ctx) error
}

type planController struct {
	service   service.IPlanService
	jwtSecret string
}

func NewPlanController(service service.IPlanService, jwtSecret string) IPlanController {
	return &planController{service: service, jwtSecret: jwtSecret}
}

func (c *planController) RegisterRoutes(r fiber.Router) {
	authed := serverutils.JwtMiddleware(c.jwtSecret)
	designerOnly := serverutils.RequireRole(string(entity.UserRoleDesigner), string(entity.UserRoleAdmin))

	h := r.Group("/plans")
	h.Get("/", c.ListPlans)
	h.Get("/mine", authed, designerOnly, c.ListDesignerPlans)
	h.Get("/:id", serverutils.OptionalJwt(c.jwtSecret), c.GetPlan)
	h.Post("/", authed, designerOnly, c.CreatePlan)
	h.Patch("/:id", authed, designerOnly, c.UpdatePlan)
	h.Post("/:id/files", authed, designerOnly, c.AddPlanFile)
}

func parseIDParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (c *planController) ListPlans(ctx *fiber.Ctx) error {
	var filter dto.PlanFilter
	if err := ctx.QueryParser(&filter); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}

	res, err := c.service.ListPlans(ctx.UserContext(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Plans fetched", res))
}

func (c *planController) GetPlan(ctx *fiber.Ctx) error {
	planId, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	// Anonymous viewers only see published plans.
	viewerId, role, _ := serverutils.CurrentUser(ctx)

	res, err := c.service.GetPlan(ctx.UserContext(), viewerId, role, planId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Plan fetched", res))
}

func (c *planController) CreatePlan(ctx *fiber.Ctx) error {
	userId, _, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}

	var req dto.CreatePlanRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreatePlan(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Plan created", res))
}

func (c *planController) UpdatePlan(ctx *fiber.Ctx) error {
	userId, role, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}
	planId, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdatePlanRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdatePlan(ctx.UserContext(), userId, role, planId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Plan updated", res))
}

func (c *planController) AddPlanFile(ctx *fiber.Ctx) error {
	userId, role, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}
	planId, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.AddPlanFileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.AddPlanFile(ctx.UserContext(), userId, role, planId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("File added", res))
}

func (c *planController) ListDesignerPlans(ctx *fiber.Ctx) error {
	userId, _, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListDesignerPlans(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Plans fetched", res))
}
