package serverutils

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken   = errors.New("missing token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidClaims  = errors.New("invalid token claims")
	ErrMissingSubject = errors.New("token missing user_id")
)

// ParseUserId validates an HMAC signed token and returns its user_id claim.
func ParseUserId(tokenStr string, secret string) (uuid.UUID, error) {
	if tokenStr == "" {
		return uuid.Nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidClaims
	}

	userIdStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, ErrMissingSubject
	}

	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, ErrInvalidClaims
	}
	return userId, nil
}

// TokenFromRequest reads the bearer header first, then the "token" query
// parameter (browsers cannot set headers on websocket handshakes).
func TokenFromRequest(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return ctx.Query("token")
}

// NewJwtMiddleware stores the caller's uuid in Locals("user_id").
func NewJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userId, err := ParseUserId(TokenFromRequest(ctx), secret)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, err.Error()))
		}

		ctx.Locals("user_id", userId)
		return ctx.Next()
	}
}

// UserIdFromLocals returns the identity set by NewJwtMiddleware.
func UserIdFromLocals(ctx *fiber.Ctx) (uuid.UUID, bool) {
	userId, ok := ctx.Locals("user_id").(uuid.UUID)
	return userId, ok
}
