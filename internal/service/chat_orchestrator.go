package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"insightdocs-be/internal/constant"
	"insightdocs-be/internal/dto"
	"insightdocs-be/internal/entity"
	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/internal/pkg/workerpool"
	"insightdocs-be/pkg/chatbot"
	"insightdocs-be/pkg/events"
	"insightdocs-be/pkg/materializer"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Peer is the outbound half of a chat connection.
type Peer interface {
	Send(frame interface{}) error
}

// RoomBroker is the shared group primitive rooms are built on. deliver is
// called for every event broadcast to the room, including the member's own.
type RoomBroker interface {
	Join(ctx context.Context, roomKey string, memberId string, deliver func(dto.RoomEvent)) error
	Leave(ctx context.Context, roomKey string, memberId string) error
	Broadcast(ctx context.Context, roomKey string, event dto.RoomEvent) error
}

type DocumentMaterializer interface {
	Materialize(ctx context.Context, ref materializer.DocumentRef) (string, func(), error)
}

type AIResponder interface {
	Respond(ctx context.Context, userMessage string, filePath string, history []chatbot.HistoryTurn) string
}

type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateAuthorizing
	StateOpen
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateAuthorizing:
		return "AUTHORIZING"
	case StateOpen:
		return "OPEN"
	default:
		return "CLOSED"
	}
}

func RoomKey(documentId uint, userId uuid.UUID) string {
	return fmt.Sprintf("%s%d_%s", constant.RoomKeyPrefix, documentId, userId)
}

type ChatOrchestrator struct {
	documents     IDocumentService
	conversations IConversationService
	materializer  DocumentMaterializer
	responder     AIResponder
	rooms         roomCapability
	pools         WorkerPools
	publisher     IEventPublisher
	tracer        trace.Tracer
	logger        logger.ILogger
}

// WorkerPools separates short store calls from long network calls so AI turns
// in flight never hold the slots that handshakes and acks need.
type WorkerPools struct {
	Store  *workerpool.Pool
	Remote *workerpool.Pool
}

func NewChatOrchestrator(
	documents IDocumentService,
	conversations IConversationService,
	materializer DocumentMaterializer,
	responder AIResponder,
	rooms RoomBroker,
	pools WorkerPools,
	publisher IEventPublisher,
	log logger.ILogger,
) *ChatOrchestrator {
	return &ChatOrchestrator{
		documents:     documents,
		conversations: conversations,
		materializer:  materializer,
		responder:     responder,
		rooms:         roomCapability{broker: rooms, logger: log},
		pools:         pools,
		publisher:     publisher,
		tracer:        otel.Tracer("insightdocs-be/chat"),
		logger:        log,
	}
}

// NewConnection starts a connection in CONNECTING. uuid.Nil means the caller
// presented no valid identity.
func (o *ChatOrchestrator) NewConnection(userId uuid.UUID, documentId uint) *ChatConnection {
	return &ChatConnection{
		id:           uuid.NewString(),
		userId:       userId,
		documentId:   documentId,
		orchestrator: o,
		state:        StateConnecting,
	}
}

// ChatConnection is one client's conversation about one document. Handle must
// be called from a single goroutine; room deliveries may arrive concurrently.
type ChatConnection struct {
	id           string
	userId       uuid.UUID
	documentId   uint
	roomKey      string
	orchestrator *ChatOrchestrator

	mu       sync.Mutex
	state    ConnectionState
	peer     Peer
	document *entity.Document
}

func (c *ChatConnection) Id() string {
	return c.id
}

func (c *ChatConnection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *ChatConnection) RoomKey() string {
	return c.roomKey
}

// Authorize checks identity and document ownership. On failure the connection
// is CLOSED and must be rejected without any frame.
func (c *ChatConnection) Authorize(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		return fmt.Errorf("authorize in state %s", c.state)
	}
	c.state = StateAuthorizing
	c.mu.Unlock()

	o := c.orchestrator
	document, err := workerpool.Do(ctx, o.pools.Store, func(ctx context.Context) (*entity.Document, error) {
		return o.documents.Authorize(ctx, c.userId, c.documentId)
	})
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()

		o.logger.Warn("CHAT", "Connection rejected", map[string]interface{}{
			"document_id": c.documentId,
			"user_id":     c.userId.String(),
			"reason":      err.Error(),
		})
		return err
	}

	c.mu.Lock()
	c.document = document
	c.roomKey = RoomKey(c.documentId, c.userId)
	c.mu.Unlock()
	return nil
}

// Open accepts an authorized connection and joins its room. A failed join
// only disables typing indicators.
func (c *ChatConnection) Open(ctx context.Context, peer Peer) error {
	c.mu.Lock()
	if c.state != StateAuthorizing || c.document == nil {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("open in state %s", state)
	}
	c.peer = peer
	c.state = StateOpen
	c.mu.Unlock()

	o := c.orchestrator
	o.rooms.join(ctx, c.roomKey, c.id, c.deliverRoomEvent)

	o.logger.Info("CHAT", "Connection opened", map[string]interface{}{
		"connection_id": c.id,
		"document_id":   c.documentId,
		"user_id":       c.userId.String(),
	})
	return nil
}

// Close is idempotent. Turns already running finish; their frames are dropped.
func (c *ChatConnection) Close(ctx context.Context) {
	c.mu.Lock()
	previous := c.state
	c.state = StateClosed
	c.mu.Unlock()

	if previous == StateClosed {
		return
	}
	if previous == StateOpen {
		c.orchestrator.rooms.leave(ctx, c.roomKey, c.id)
	}

	c.orchestrator.logger.Info("CHAT", "Connection closed", map[string]interface{}{
		"connection_id": c.id,
		"document_id":   c.documentId,
	})
}

// Handle processes one inbound frame. Protocol problems are answered with an
// error frame and the connection stays open.
func (c *ChatConnection) Handle(ctx context.Context, raw []byte) {
	if c.State() != StateOpen {
		return
	}

	var frame dto.InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.sendError(constant.ErrInvalidJSON)
		return
	}

	switch frame.Type {
	case constant.FrameTypeChatMessage:
		c.handleChatMessage(ctx, frame.Content)
	case constant.FrameTypeTyping:
		c.handleTyping(ctx)
	default:
		c.sendError(constant.ErrUnknownMessageType)
	}
}

func (c *ChatConnection) handleChatMessage(ctx context.Context, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		c.sendError(constant.ErrMessageEmpty)
		return
	}

	o := c.orchestrator
	// A closed connection does not abort a turn that already started.
	ctx = context.WithoutCancel(ctx)

	document, err := workerpool.Do(ctx, o.pools.Store, func(ctx context.Context) (*entity.Document, error) {
		return o.documents.Authorize(ctx, c.userId, c.documentId)
	})
	if err != nil {
		c.sendError(constant.ErrDocumentNotFound)
		return
	}

	userMessage, err := workerpool.Do(ctx, o.pools.Store, func(ctx context.Context) (*entity.ChatMessage, error) {
		sessionId, err := o.conversations.SessionId(ctx, c.documentId, c.userId)
		if err != nil {
			return nil, err
		}
		return o.conversations.AppendMessage(ctx, sessionId, constant.ChatMessageRoleUser, content)
	})
	if err != nil {
		o.logger.Error("CHAT", "Failed to save user message", map[string]interface{}{
			"connection_id": c.id,
			"error":         err,
		})
		c.sendError(constant.ErrMessageSaveFailed)
		return
	}

	c.send(dto.NewUserMessageFrame(userMessage))
	c.runTurn(ctx, document, userMessage)
}

type materializedDocument struct {
	path    string
	release func()
}

func (c *ChatConnection) runTurn(ctx context.Context, document *entity.Document, userMessage *entity.ChatMessage) {
	o := c.orchestrator
	ctx, span := o.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.Int64("document.id", int64(document.Id)),
		attribute.Int64("chat.session_id", int64(userMessage.SessionId)),
		attribute.String("chat.connection_id", c.id),
	))
	defer span.End()

	c.send(dto.AiThinkingFrame{Type: constant.FrameTypeAiThinking, Status: constant.AiThinkingStatusProcessing})

	local, err := workerpool.Do(ctx, o.pools.Remote, func(ctx context.Context) (materializedDocument, error) {
		path, release, err := o.materializer.Materialize(ctx, materializer.DocumentRef{
			StorageBackend: document.StorageBackend,
			StorageKey:     document.StorageKey,
			OriginalName:   document.OriginalName,
		})
		return materializedDocument{path: path, release: release}, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "materialize document")
		o.logger.Error("CHAT", "Failed to materialize document", map[string]interface{}{
			"document_id": document.Id,
			"error":       err,
		})
		c.sendError(constant.ErrDocumentLoadPrefix + err.Error())
		return
	}
	defer local.release()

	history, err := workerpool.Do(ctx, o.pools.Store, func(ctx context.Context) ([]*entity.ChatMessage, error) {
		return o.conversations.HistoryBefore(ctx, userMessage.SessionId, userMessage.Id)
	})
	if err != nil {
		c.failTurn(span, "load history", err)
		return
	}

	turns := make([]chatbot.HistoryTurn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, chatbot.HistoryTurn{Role: msg.Role, Content: msg.Content})
	}

	reply, err := workerpool.Do(ctx, o.pools.Remote, func(ctx context.Context) (string, error) {
		return o.responder.Respond(ctx, userMessage.Content, local.path, turns), nil
	})
	if err != nil {
		c.failTurn(span, "generate reply", err)
		return
	}

	aiMessage, err := workerpool.Do(ctx, o.pools.Store, func(ctx context.Context) (*entity.ChatMessage, error) {
		return o.conversations.AppendMessage(ctx, userMessage.SessionId, constant.ChatMessageRoleAssistant, reply)
	})
	if err != nil {
		c.failTurn(span, "save reply", err)
		return
	}

	c.send(dto.NewAiMessageFrame(aiMessage))
	span.SetAttributes(attribute.Int("chat.history_len", len(turns)))

	if o.publisher != nil {
		evt := events.New(constant.EventChatTurnCompleted, map[string]interface{}{
			"document_id": document.Id,
			"session_id":  aiMessage.SessionId,
			"user_id":     c.userId.String(),
			"message_id":  aiMessage.Id,
		})
		if err := o.publisher.Publish(ctx, evt); err != nil {
			o.logger.Warn("CHAT", "Failed to publish CHAT_TURN_COMPLETED", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func (c *ChatConnection) failTurn(span trace.Span, step string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, step)
	c.orchestrator.logger.Error("CHAT", "Chat turn failed", map[string]interface{}{
		"connection_id": c.id,
		"step":          step,
		"error":         err,
	})
	c.sendError(constant.ErrAiTurnPrefix + err.Error())
}

func (c *ChatConnection) handleTyping(ctx context.Context) {
	c.orchestrator.rooms.broadcast(ctx, c.roomKey, dto.RoomEvent{
		Type:     constant.RoomEventTypingIndicator,
		SenderId: c.id,
		User:     c.userId.String(),
	})
}

// deliverRoomEvent receives room traffic. A member never sees its own typing.
func (c *ChatConnection) deliverRoomEvent(event dto.RoomEvent) {
	if event.Type != constant.RoomEventTypingIndicator || event.SenderId == c.id {
		return
	}
	c.send(dto.UserTypingFrame{Type: constant.FrameTypeUserTyping, User: event.User})
}

func (c *ChatConnection) sendError(message string) {
	c.send(dto.NewErrorFrame(message))
}

// send never fails the caller; a frame that cannot be delivered is logged.
func (c *ChatConnection) send(frame interface{}) {
	c.mu.Lock()
	peer := c.peer
	state := c.state
	c.mu.Unlock()

	err := ErrConnectionClosed
	if state == StateOpen && peer != nil {
		err = peer.Send(frame)
	}
	if err != nil {
		c.orchestrator.logger.Warn("CHAT", "Dropping outbound frame", map[string]interface{}{
			"connection_id": c.id,
			"frame":         fmt.Sprintf("%T", frame),
			"error":         err.Error(),
		})
	}
}

// roomCapability makes the room optional: a missing or failing broker is
// logged and never reaches the connection.
type roomCapability struct {
	broker RoomBroker
	logger logger.ILogger
}

func (r roomCapability) join(ctx context.Context, roomKey, memberId string, deliver func(dto.RoomEvent)) {
	if r.broker == nil {
		r.logger.Warn("CHAT", "Room broker unavailable, typing indicators disabled", map[string]interface{}{
			"room": roomKey,
		})
		return
	}
	if err := r.broker.Join(ctx, roomKey, memberId, deliver); err != nil {
		r.logger.Error("CHAT", "Error adding to room", map[string]interface{}{
			"room":  roomKey,
			"error": err,
		})
	}
}

func (r roomCapability) leave(ctx context.Context, roomKey, memberId string) {
	if r.broker == nil {
		return
	}
	if err := r.broker.Leave(ctx, roomKey, memberId); err != nil {
		r.logger.Error("CHAT", "Error removing from room", map[string]interface{}{
			"room":  roomKey,
			"error": err,
		})
	}
}

func (r roomCapability) broadcast(ctx context.Context, roomKey string, event dto.RoomEvent) {
	if r.broker == nil {
		return
	}
	if err := r.broker.Broadcast(ctx, roomKey, event); err != nil {
		r.logger.Error("CHAT", "Error sending typing indicator", map[string]interface{}{
			"room":  roomKey,
			"error": err,
		})
	}
}
