package controller

import (
	"planhub-be/internal/dto"
	"planhub-be/internal/pkg/serverutils"
	"planhub-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPurchaseController interface {
	RegisterRoutes(r fiber.Router)
	InitiatePurchase(ctx *fiber.Ctx) error
	ListMyPurchases(ctx *fiber.Ctx) error
	GetEntitlement(ctx *fiber.Ctx) error
}

type purchaseController struct {
	service   service.IPurchaseService
	jwtSecret string
}

func NewPurchaseController(service service.IPurchaseService, jwtSecret string) IPurchaseController {
	return &purchaseController{service: service, jwtSecret: jwtSecret}
}

func (c *purchaseController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/purchases")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("/", c.InitiatePurchase)
	h.Get("/", c.ListMyPurchases)
	h.Get("/entitlement/:planId", c.GetEntitlement)
}

func (c *purchaseController) InitiatePurchase(ctx *fiber.Ctx) error {
	userId, _, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}

	var req dto.InitiatePurchaseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.InitiatePurchase(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Payment initialized", res))
}

func (c *purchaseController) ListMyPurchases(ctx *fiber.Ctx) error {
	userId, _, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListMyPurchases(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Purchases fetched", res))
}

func (c *purchaseController) GetEntitlement(ctx *fiber.Ctx) error {
	userId, _, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}
	planId, err := parseIDParam(ctx, "planId")
	if err != nil {
		return err
	}

	res, err := c.service.GetEntitlement(ctx.UserContext(), userId, planId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Entitlement fetched", res))
}
