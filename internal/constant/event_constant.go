package constant

const (
	EventDocumentUploaded  = "DOCUMENT_UPLOADED"
	EventDocumentDeleted   = "DOCUMENT_DELETED"
	EventChatTurnCompleted = "CHAT_TURN_COMPLETED"
)
