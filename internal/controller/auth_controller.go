package controller

import (
	"time"

	"planhub-be/internal/dto"
	"planhub-be/internal/pkg/serverutils"
	"planhub-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const refreshCookieName = "refresh_token"

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	Me(ctx *fiber.Ctx) error
}

type authController struct {
	service       service.IAuthService
	jwtSecret     string
	refreshTTL    time.Duration
	secureCookies bool
}

func NewAuthController(service service.IAuthService, jwtSecret string, refreshTTL time.Duration, secureCookies bool) IAuthController {
	return &authController{
		service:       service,
		jwtSecret:     jwtSecret,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/register", c.Register)
	h.Post("/login", c.Login)
	h.Post("/refresh", c.Refresh)
	h.Post("/logout", c.Logout)
	h.Get("/me", serverutils.JwtMiddleware(c.jwtSecret), c.Me)
}

func (c *authController) setRefreshCookie(ctx *fiber.Ctx, token string, expires time.Time) {
	ctx.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/auth",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   c.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// refreshCredential prefers the JSON body and falls back to the cookie.
func (c *authController) refreshCredential(ctx *fiber.Ctx) string {
	var req dto.RefreshTokenRequest
	if err := ctx.BodyParser(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ctx.Cookies(refreshCookieName)
}

func (c *authController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Register(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("User registered successfully", res))
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Login(ctx.UserContext(), &req, ctx.IP(), ctx.Get(fiber.HeaderUserAgent))
	if err != nil {
		return err
	}
	c.setRefreshCookie(ctx, res.RefreshToken, time.Now().Add(c.refreshTTL))
	return ctx.JSON(serverutils.SuccessResponse("Login success", res))
}

func (c *authController) Refresh(ctx *fiber.Ctx) error {
	token := c.refreshCredential(ctx)
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing refresh token")
	}

	res, err := c.service.Refresh(ctx.UserContext(), token, ctx.IP(), ctx.Get(fiber.HeaderUserAgent))
	if err != nil {
		return err
	}
	c.setRefreshCookie(ctx, res.RefreshToken, time.Now().Add(c.refreshTTL))
	return ctx.JSON(serverutils.SuccessResponse("Token refreshed", res))
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	if token := c.refreshCredential(ctx); token != "" {
		if err := c.service.Logout(ctx.UserContext(), token); err != nil {
			return err
		}
	}
	ctx.ClearCookie(refreshCookieName)
	return ctx.JSON(serverutils.SuccessResponse[any]("Logged out successfully", nil))
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	userId, _, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Me(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Profile fetched", res))
}
