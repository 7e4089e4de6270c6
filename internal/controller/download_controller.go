package controller

import (
	"fmt"
	"io"
	"os"

	"planhub-be/internal/dto"
	"planhub-be/internal/pkg/logger"
	"planhub-be/internal/pkg/serverutils"
	"planhub-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDownloadController interface {
	RegisterRoutes(r fiber.Router)
	RequestLink(ctx *fiber.Ctx) error
	Redeem(ctx *fiber.Ctx) error
}

type downloadController struct {
	service   service.IDownloadService
	jwtSecret string
	tempDir   string
	logger    logger.ILogger
}

func NewDownloadController(service service.IDownloadService, jwtSecret, tempDir string, logger logger.ILogger) IDownloadController {
	return &downloadController{
		service:   service,
		jwtSecret: jwtSecret,
		tempDir:   tempDir,
		logger:    logger,
	}
}

func (c *downloadController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/downloads")
	h.Post("/link", serverutils.JwtMiddleware(c.jwtSecret), c.RequestLink)
	// The token itself is the credential.
	h.Get("/:token", c.Redeem)
}

func (c *downloadController) RequestLink(ctx *fiber.Ctx) error {
	userId, role, err := serverutils.CurrentUser(ctx)
	if err != nil {
		return err
	}

	var req dto.DownloadLinkRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := c.service.RequestLink(ctx.UserContext(), userId, role, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Download link generated", res))
}

// Redeem builds the archive into an unlinked temp file so nothing is sent
// until the token has been consumed.
func (c *downloadController) Redeem(ctx *fiber.Ctx) error {
	f, err := os.CreateTemp(c.tempDir, "bundle-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	if err := os.Remove(f.Name()); err != nil {
		c.logger.Warn("DOWNLOAD", "Could not unlink temp archive", map[string]interface{}{"path": f.Name(), "error": err.Error()})
	}

	res, err := c.service.Redeem(ctx.UserContext(), ctx.Params("token"), f)
	if err != nil {
		f.Close()
		return err
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("rewind temp archive: %w", err)
	}

	ctx.Set(fiber.HeaderContentType, "application/zip")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, res.FileName))
	ctx.Set(fiber.HeaderCacheControl, "no-store")
	// fasthttp closes the stream once the body is written.
	return ctx.SendStream(f, int(size))
}
