package handler

import (
	"context"
	"errors"
	"strconv"

	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/internal/pkg/serverutils"
	"insightdocs-be/internal/service"
	internalWS "insightdocs-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type ChatHandler struct {
	orchestrator *service.ChatOrchestrator
	jwtSecret    string
	logger       logger.ILogger
}

func NewChatHandler(orchestrator *service.ChatOrchestrator, jwtSecret string, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		jwtSecret:    jwtSecret,
		logger:       log,
	}
}

func (h *ChatHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/chat/:documentId", h.ServeWs)
}

// ServeWs authorizes the caller against the document before upgrading.
// Rejected handshakes get a plain HTTP error and never see a frame.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	userId, err := serverutils.ParseUserId(serverutils.TokenFromRequest(c), h.jwtSecret)
	if err != nil {
		userId = uuid.Nil
	}

	documentId, err := strconv.ParseUint(c.Params("documentId"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, service.ErrDocumentNotFound.Error())
	}

	conn := h.orchestrator.NewConnection(userId, uint(documentId))
	if err := conn.Authorize(c.UserContext()); err != nil {
		return rejection(err)
	}

	if !websocket.IsWebSocketUpgrade(c) {
		conn.Close(c.UserContext())
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(ws *websocket.Conn) {
		h.logger.Info("CHAT_HANDLER", "Starting websocket session", map[string]interface{}{
			"connection_id": conn.Id(),
			"document_id":   documentId,
		})
		internalWS.ServeWs(context.Background(), ws, conn, h.logger)
		h.logger.Info("CHAT_HANDLER", "Websocket session ended", map[string]interface{}{
			"connection_id": conn.Id(),
		})
	})(c)
}

// rejection answers someone else's document like a missing one so the
// handshake does not reveal which document ids exist.
func rejection(err error) error {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrDocumentNotFound), errors.Is(err, service.ErrDocumentForbidden):
		return fiber.NewError(fiber.StatusNotFound, service.ErrDocumentNotFound.Error())
	default:
		return err
	}
}
