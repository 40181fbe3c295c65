package dto

import "time"

type UploadDocumentRequest struct {
	Title        string `validate:"max=255"`
	OriginalName string `validate:"required,max=255"`
	SizeBytes    int64  `validate:"gt=0"`
	ContentType  string
}

type ListDocumentsRequest struct {
	Limit  int `validate:"gte=1,lte=100"`
	Offset int `validate:"gte=0"`
}

type DocumentResponse struct {
	Id           uint      `json:"id"`
	Title        string    `json:"title"`
	OriginalName string    `json:"original_name"`
	Extension    string    `json:"extension"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type UploadDocumentResponse struct {
	Document  *DocumentResponse `json:"document"`
	SessionId uint              `json:"session_id"`
}

type ListDocumentsResponse struct {
	Documents []*DocumentResponse `json:"documents"`
	Total     int64               `json:"total"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
}

type ChatHistoryMessage struct {
	Id        uint   `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type DocumentChatResponse struct {
	Document        *DocumentResponse     `json:"document"`
	SessionId       uint                  `json:"session_id"`
	Messages        []*ChatHistoryMessage `json:"messages"`
	RecentDocuments []*DocumentResponse   `json:"recent_documents"`
}
