package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	UserID uuid.UUID
	Role   string
}

// ParseAccessToken validates an HS256 access token and extracts its claims.
func ParseAccessToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("token missing user_id")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, errors.New("invalid user id in token")
	}
	role, _ := claims["role"].(string)

	return &Claims{UserID: userID, Role: role}, nil
}

func bearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}
	return authHeader[7:]
}

func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := bearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		claims, err := ParseAccessToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals("user_id", claims.UserID.String())
		ctx.Locals("role", claims.Role)
		return ctx.Next()
	}
}

// RequireRole must run after JwtMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		role, _ := ctx.Locals("role").(string)
		for _, r := range roles {
			if r == role {
				return ctx.Next()
			}
		}
		return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(fiber.StatusForbidden, "insufficient role"))
	}
}

// CurrentUser reads what JwtMiddleware stored in locals.
func CurrentUser(ctx *fiber.Ctx) (uuid.UUID, string, error) {
	userIDStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, "", fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, "", fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID")
	}
	role, _ := ctx.Locals("role").(string)
	return userID, role, nil
}

// OptionalJwt sets the same locals as JwtMiddleware when a valid bearer
// token is present and lets anonymous requests through untouched.
func OptionalJwt(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if tokenStr := bearerToken(ctx); tokenStr != "" {
			if claims, err := ParseAccessToken(secret, tokenStr); err == nil {
				ctx.Locals("user_id", claims.UserID.String())
				ctx.Locals("role", claims.Role)
			}
		}
		return ctx.Next()
	}
}
