package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"insightdocs-be/internal/entity"
	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/internal/pkg/serverutils"
	"insightdocs-be/internal/pkg/workerpool"
	"insightdocs-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "chat-secret"

type stubDocuments struct {
	service.IDocumentService
	owners map[uint]uuid.UUID
}

func (s *stubDocuments) Authorize(ctx context.Context, userId uuid.UUID, documentId uint) (*entity.Document, error) {
	if userId == uuid.Nil {
		return nil, service.ErrUnauthenticated
	}
	owner, ok := s.owners[documentId]
	if !ok {
		return nil, service.ErrDocumentNotFound
	}
	if owner != userId {
		return nil, service.ErrDocumentForbidden
	}
	return &entity.Document{Id: documentId, OwnerId: owner}, nil
}

func newTestApp(owners map[uint]uuid.UUID) *fiber.App {
	log := logger.NewNopLogger()
	orchestrator := service.NewChatOrchestrator(
		&stubDocuments{owners: owners}, nil, nil, nil, nil, service.WorkerPools{Store: workerpool.New(1), Remote: workerpool.New(1)}, nil, log,
	)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewChatHandler(orchestrator, testSecret, log).RegisterRoutes(app.Group("/api"))
	return app
}

func tokenFor(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userId.String()}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestChatHandlerRejectsBeforeUpgrade(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	app := newTestApp(map[uint]uuid.UUID{7: owner})

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "no token", path: "/api/ws/chat/7", wantStatus: fiber.StatusUnauthorized},
		{name: "garbage token", path: "/api/ws/chat/7?token=not-a-jwt", wantStatus: fiber.StatusUnauthorized},
		{name: "unknown document", path: "/api/ws/chat/99?token=" + tokenFor(t, owner), wantStatus: fiber.StatusNotFound},
		{name: "non numeric document", path: "/api/ws/chat/abc?token=" + tokenFor(t, owner), wantStatus: fiber.StatusNotFound},
		{name: "someone else's document", path: "/api/ws/chat/7?token=" + tokenFor(t, stranger), wantStatus: fiber.StatusNotFound},
		{name: "owner without upgrade headers", path: "/api/ws/chat/7?token=" + tokenFor(t, owner), wantStatus: fiber.StatusUpgradeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.StatusCode)

			body, _ := io.ReadAll(res.Body)
			assert.NotContains(t, string(body), `"type"`)
		})
	}
}

func TestChatHandlerAcceptsBearerHeader(t *testing.T) {
	owner := uuid.New()
	app := newTestApp(map[uint]uuid.UUID{3: owner})

	req := httptest.NewRequest("GET", "/api/ws/chat/3", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, owner))
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, res.StatusCode)
}

func TestChatHandlerAnswersForeignAndMissingDocumentsAlike(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	app := newTestApp(map[uint]uuid.UUID{7: owner})

	read := func(path string) (int, string) {
		res, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		body, _ := io.ReadAll(res.Body)
		return res.StatusCode, string(body)
	}

	foreignStatus, foreignBody := read("/api/ws/chat/7?token=" + tokenFor(t, stranger))
	missingStatus, missingBody := read("/api/ws/chat/8?token=" + tokenFor(t, stranger))

	assert.Equal(t, fiber.StatusNotFound, foreignStatus)
	assert.Equal(t, missingStatus, foreignStatus)
	assert.Equal(t, missingBody, foreignBody)
}
