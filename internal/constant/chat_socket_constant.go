package constant

// Inbound frame types
const (
	FrameTypeChatMessage = "chat_message"
	FrameTypeTyping      = "typing"
)

// Outbound frame types
const (
	FrameTypeUserMessage = "user_message"
	FrameTypeAiThinking  = "ai_thinking"
	FrameTypeAiMessage   = "ai_message"
	FrameTypeUserTyping  = "user_typing"
	FrameTypeError       = "error"

	AiThinkingStatusProcessing = "processing"
)

// Room event types
const (
	RoomEventTypingIndicator = "typing_indicator"
)

const (
	ErrMessageEmpty       = "Message cannot be empty"
	ErrUnknownMessageType = "Unknown message type"
	ErrInvalidJSON        = "Invalid JSON format"
	ErrDocumentLoadPrefix = "Failed to load document: "
	ErrMessageSaveFailed  = "Failed to save message"
	ErrDocumentNotFound   = "Document not found"
	ErrAiTurnPrefix       = "AI Error: "
)

// RoomKeyPrefix + "<document>_<user>" names the room of a conversation.
const RoomKeyPrefix = "chat_"
