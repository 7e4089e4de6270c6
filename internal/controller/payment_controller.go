package controller

import (
	"planhub-be/internal/dto"
	"planhub-be/internal/pkg/serverutils"
	"planhub-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	HandleWebhook(ctx *fiber.Ctx) error
	Verify(ctx *fiber.Ctx) error
}

type paymentController struct {
	service   service.IPaymentService
	jwtSecret string
}

func NewPaymentController(service service.IPaymentService, jwtSecret string) IPaymentController {
	return &paymentController{service: service, jwtSecret: jwtSecret}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/payments")
	h.Post("/webhook/:provider", c.HandleWebhook)
	h.Post("/verify", serverutils.JwtMiddleware(c.jwtSecret), c.Verify)
}

// completionReply keeps soft outcomes distinguishable from success.
func completionReply(ctx *fiber.Ctx, res *dto.CompletionResponse) error {
	return ctx.Status(res.Code).JSON(&serverutils.Response[*dto.CompletionResponse]{
		Success: !res.Soft,
		Code:    res.Code,
		Message: res.Message,
		Data:    res,
	})
}

func (c *paymentController) HandleWebhook(ctx *fiber.Ctx) error {
	// The signature covers the raw bytes, so the body is never re-encoded.
	body := append([]byte(nil), ctx.Body()...)

	header := func(key string) string { return ctx.Get(key) }

	res, err := c.service.HandleWebhook(ctx.UserContext(), ctx.Params("provider"), body, header)
	if err != nil {
		return err
	}
	return completionReply(ctx, res)
}

func (c *paymentController) Verify(ctx *fiber.Ctx) error {
	userId, _, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}

	var req dto.VerifyPaymentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.VerifyForUser(ctx.UserContext(), userId, req.Reference)
	if err != nil {
		return err
	}
	return completionReply(ctx, res)
}
