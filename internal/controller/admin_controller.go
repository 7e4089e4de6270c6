package controller

import (
	"planhub-be/internal/dto"
	"planhub-be/internal/entity"
	"planhub-be/internal/pkg/serverutils"
	"planhub-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	ListPurchases(ctx *fiber.Ctx) error
	VerifyPayment(ctx *fiber.Ctx) error
	ListUsers(ctx *fiber.Ctx) error
	UpdateUserStatus(ctx *fiber.Ctx) error
}

type adminController struct {
	adminService    service.IAdminService
	purchaseService service.IPurchaseService
	paymentService  service.IPaymentService
	jwtSecret       string
}

func NewAdminController(
	adminService service.IAdminService,
	purchaseService service.IPurchaseService,
	paymentService service.IPaymentService,
	jwtSecret string,
) IAdminController {
	return &adminController{
		adminService:    adminService,
		purchaseService: purchaseService,
		paymentService:  paymentService,
		jwtSecret:       jwtSecret,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Use(serverutils.RequireRole(string(entity.UserRoleAdmin)))

	h.Get("/purchases", c.ListPurchases)
	h.Post("/payments/verify", c.VerifyPayment)
	h.Get("/users", c.ListUsers)
	h.Patch("/users/:id/status", c.UpdateUserStatus)
}

func (c *adminController) ListPurchases(ctx *fiber.Ctx) error {
	var filter dto.PurchaseFilter
	if err := ctx.QueryParser(&filter); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}

	res, err := c.purchaseService.ListPurchases(ctx.UserContext(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Purchases fetched", res))
}

func (c *adminController) VerifyPayment(ctx *fiber.Ctx) error {
	var req dto.VerifyPaymentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.paymentService.VerifyForAdmin(ctx.UserContext(), req.Reference)
	if err != nil {
		return err
	}
	return completionReply(ctx, res)
}

func (c *adminController) ListUsers(ctx *fiber.Ctx) error {
	var filter dto.AdminUserFilter
	if err := ctx.QueryParser(&filter); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}

	res, err := c.adminService.ListUsers(ctx.UserContext(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Users fetched", res))
}

func (c *adminController) UpdateUserStatus(ctx *fiber.Ctx) error {
	adminId, _, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}
	userId, err := parseIDParam(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateUserStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.adminService.UpdateUserStatus(ctx.UserContext(), adminId, userId, req.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User status updated", res))
}
