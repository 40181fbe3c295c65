package serverutils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseUserId(t *testing.T) {
	userId := uuid.New()

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:  "valid token",
			token: signToken(t, jwt.MapClaims{"user_id": userId.String(), "exp": time.Now().Add(time.Hour).Unix()}, testSecret),
		},
		{
			name:    "missing token",
			token:   "",
			wantErr: ErrMissingToken,
		},
		{
			name:    "wrong secret",
			token:   signToken(t, jwt.MapClaims{"user_id": userId.String()}, "other"),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "expired",
			token:   signToken(t, jwt.MapClaims{"user_id": userId.String(), "exp": time.Now().Add(-time.Hour).Unix()}, testSecret),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "no user_id claim",
			token:   signToken(t, jwt.MapClaims{"sub": "x"}, testSecret),
			wantErr: ErrMissingSubject,
		},
		{
			name:    "user_id not a uuid",
			token:   signToken(t, jwt.MapClaims{"user_id": "42"}, testSecret),
			wantErr: ErrInvalidClaims,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUserId(tt.token, testSecret)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, uuid.Nil, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userId, got)
		})
	}
}

func TestJwtMiddleware(t *testing.T) {
	userId := uuid.New()
	app := fiber.New()
	app.Get("/me", NewJwtMiddleware(testSecret), func(ctx *fiber.Ctx) error {
		id, ok := UserIdFromLocals(ctx)
		if !ok {
			return fiber.ErrUnauthorized
		}
		return ctx.SendString(id.String())
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"user_id": userId.String()}, testSecret))
		res, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(res.Body)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
		assert.Equal(t, userId.String(), string(body))
	})

	t.Run("query token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me?token="+signToken(t, jwt.MapClaims{"user_id": userId.String()}, testSecret), nil)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		res, err := app.Test(httptest.NewRequest("GET", "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})
}

type uploadForm struct {
	Title string `validate:"required,max=5"`
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/invalid", func(ctx *fiber.Ctx) error {
		return ValidateRequest(uploadForm{Title: "much too long"})
	})
	app.Get("/missing", func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	})

	res, err := app.Test(httptest.NewRequest("GET", "/invalid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	var body Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.NotNil(t, body.Errors)

	res, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}

func TestValidateRequestPasses(t *testing.T) {
	assert.NoError(t, ValidateRequest(uploadForm{Title: "ok"}))
}
