package constant

const (
	// Stored roles
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"

	// Gemini roles
	GeminiRoleUser  = "user"
	GeminiRoleModel = "model"

	// GeneratingPlaceholder is never replayed to the model.
	GeneratingPlaceholder = "[Generating response...]"

	DocumentInitialUserPromptV1 = "You are a helpful AI assistant. " +
		"First check if the user's question can be answered from the document. " +
		"If yes — use the document and reference it directly. " +
		"If no — intelligently use external knowledge to help. " +
		"If the document has questions/exercises, solve them logically using both the document and your knowledge. " +
		"Make answers clear, structured, and accurate."

	DocumentInitialModelPromptV1 = "I've read the document and I'm ready to help. What would you like to know?"
)

// User facing replies for AI layer failures. They are stored as assistant messages.
const (
	ReplyDocumentUnprocessable = "Could not process the document. Please ensure it's a valid PDF, DOCX, or text file."
	ReplyNoResponse            = "No response from AI. Please try again."
	ReplyBlocked               = "Your message was blocked by safety filters. Please rephrase your question."
	ReplyServiceErrorPrefix    = "Gemini API Error: "
	ReplyTimeout               = "Request timed out. The document might be too large. Please try again."
	ReplyGenericFailure        = "An error occurred. Please try again."
)
