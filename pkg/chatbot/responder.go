package chatbot

import (
	"context"
	"errors"
	"strings"
	"time"

	"insightdocs-be/internal/constant"
	"insightdocs-be/internal/pkg/logger"
)

var (
	errIngestionTimeout = errors.New("file ingestion timed out")
	errIngestionFailed  = errors.New("file ingestion failed")
)

// GenerativeAPI is the part of the Gemini API the responder drives.
type GenerativeAPI interface {
	UploadFile(ctx context.Context, path string, mimeType string) (*GeminiFile, error)
	GetFile(ctx context.Context, name string) (*GeminiFile, error)
	GenerateContent(ctx context.Context, contents []*GeminiChatContent) (string, error)
}

type HistoryTurn struct {
	Role    string
	Content string
}

type RetryPolicy struct {
	MaxAttempts      int
	IngestionTimeout time.Duration
	PollInterval     time.Duration
	BackoffUnit      time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      3,
		IngestionTimeout: 30 * time.Second,
		PollInterval:     time.Second,
		BackoffUnit:      2 * time.Second,
	}
}

type Responder struct {
	api         GenerativeAPI
	policy      RetryPolicy
	chatTimeout time.Duration
	logger      logger.ILogger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewResponder builds a Responder. A zero chatTimeout leaves the
// generateContent call bounded only by the caller's context.
func NewResponder(api GenerativeAPI, policy RetryPolicy, chatTimeout time.Duration, log logger.ILogger) *Responder {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Responder{
		api:         api,
		policy:      policy,
		chatTimeout: chatTimeout,
		logger:      log,
		sleep:       sleepContext,
	}
}

// Respond answers userMessage about the document at filePath. It never fails:
// every error is turned into a reply the user can read.
func (r *Responder) Respond(ctx context.Context, userMessage string, filePath string, history []HistoryTurn) string {
	file := r.uploadWithRetry(ctx, filePath)
	if file == nil {
		r.logger.Error("CHATBOT", "Document could not be ingested", map[string]interface{}{
			"path": filePath,
		})
		return constant.ReplyDocumentUnprocessable
	}

	contents := r.buildContents(file, history, userMessage)

	chatCtx := ctx
	if r.chatTimeout > 0 {
		var cancel context.CancelFunc
		chatCtx, cancel = context.WithTimeout(ctx, r.chatTimeout)
		defer cancel()
	}

	text, err := r.api.GenerateContent(chatCtx, contents)
	if err != nil {
		return r.replyForError(err)
	}
	if strings.TrimSpace(text) == "" {
		r.logger.Error("CHATBOT", "Model returned no text", nil)
		return constant.ReplyNoResponse
	}
	return text
}

func (r *Responder) replyForError(err error) string {
	kind := KindOf(err)
	details := map[string]interface{}{"error": err, "kind": kind.String()}

	switch kind {
	case KindBlocked:
		r.logger.Warn("CHATBOT", "Prompt blocked", details)
		return constant.ReplyBlocked
	case KindServiceError:
		r.logger.Error("CHATBOT", "Gemini API error", details)
		return constant.ReplyServiceErrorPrefix + err.Error()
	case KindTimeout:
		r.logger.Error("CHATBOT", "Gemini request timed out", details)
		return constant.ReplyTimeout
	default:
		r.logger.Error("CHATBOT", "Unexpected error generating response", details)
		return constant.ReplyGenericFailure
	}
}

// uploadWithRetry returns nil once every attempt has failed.
func (r *Responder) uploadWithRetry(ctx context.Context, filePath string) *GeminiFile {
	mimeType := MimeTypeFor(filePath)

	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		file, err := r.uploadOnce(ctx, filePath, mimeType)
		if err == nil {
			return file
		}

		r.logger.Warn("CHATBOT", "Upload attempt failed", map[string]interface{}{
			"attempt":      attempt + 1,
			"max_attempts": r.policy.MaxAttempts,
			"error":        err,
		})

		if attempt < r.policy.MaxAttempts-1 {
			wait := time.Duration(attempt+1) * r.policy.BackoffUnit
			if err := r.sleep(ctx, wait); err != nil {
				return nil
			}
		}
	}

	r.logger.Error("CHATBOT", "All upload attempts failed", map[string]interface{}{
		"path": filePath,
	})
	return nil
}

func (r *Responder) uploadOnce(ctx context.Context, filePath string, mimeType string) (*GeminiFile, error) {
	file, err := r.api.UploadFile(ctx, filePath, mimeType)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	for file.State == FileStateProcessing {
		if time.Since(start) > r.policy.IngestionTimeout {
			return nil, errIngestionTimeout
		}
		if err := r.sleep(ctx, r.policy.PollInterval); err != nil {
			return nil, err
		}
		file, err = r.api.GetFile(ctx, file.Name)
		if err != nil {
			return nil, err
		}
	}

	if file.State == FileStateActive {
		return file, nil
	}
	return nil, errIngestionFailed
}

func (r *Responder) buildContents(file *GeminiFile, history []HistoryTurn, userMessage string) []*GeminiChatContent {
	contents := make([]*GeminiChatContent, 0, len(history)+3)

	contents = append(contents, &GeminiChatContent{
		Parts: []*GeminiChatParts{
			{FileData: &GeminiFileData{MimeType: file.MimeType, FileUri: file.URI}},
			{Text: constant.DocumentInitialUserPromptV1},
		},
		Role: constant.GeminiRoleUser,
	})
	contents = append(contents, &GeminiChatContent{
		Parts: []*GeminiChatParts{{Text: constant.DocumentInitialModelPromptV1}},
		Role:  constant.GeminiRoleModel,
	})

	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" || content == constant.GeneratingPlaceholder {
			continue
		}
		role := constant.GeminiRoleModel
		if turn.Role == constant.ChatMessageRoleUser {
			role = constant.GeminiRoleUser
		}
		contents = append(contents, &GeminiChatContent{
			Parts: []*GeminiChatParts{{Text: content}},
			Role:  role,
		})
	}

	contents = append(contents, &GeminiChatContent{
		Parts: []*GeminiChatParts{{Text: userMessage}},
		Role:  constant.GeminiRoleUser,
	})
	return contents
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
