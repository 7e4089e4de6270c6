package serverutils

import (
	"errors"

	"planhub-be/internal/apperr"
	"planhub-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns any error returned down the chain into the
// standard JSON envelope. Unexpected errors are logged and masked.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, log, err)
	}
}

func WriteError(ctx *fiber.Ctx, log logger.ILogger, err error) error {
	if appErr, ok := apperr.As(err); ok {
		if appErr.Err != nil && log != nil {
			log.Warn("HTTP", appErr.Message, map[string]interface{}{
				"path":  ctx.Path(),
				"error": appErr.Err.Error(),
			})
		}
		return ctx.Status(appErr.Code).JSON(ErrorResponse(appErr.Code, appErr.Message))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	if log != nil {
		log.Error("HTTP", "Unhandled error", map[string]interface{}{
			"path":       ctx.Path(),
			"method":     ctx.Method(),
			"request_id": ctx.Locals("requestid"),
			"error":      err.Error(),
		})
	}
	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "internal server error"))
}
