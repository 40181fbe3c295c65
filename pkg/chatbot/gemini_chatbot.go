package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

type GeminiFileData struct {
	MimeType string `json:"mime_type"`
	FileUri  string `json:"file_uri"`
}

type GeminiChatParts struct {
	Text     string          `json:"text,omitempty"`
	FileData *GeminiFileData `json:"file_data,omitempty"`
}

type GeminiChatContent struct {
	Parts []*GeminiChatParts `json:"parts"`
	Role  string             `json:"role"`
}

type GeminiChatRequest struct {
	Contents []*GeminiChatContent `json:"contents"`
}

type GeminiChatCandidate struct {
	Content      *GeminiChatContent `json:"content"`
	FinishReason string             `json:"finishReason"`
}

type GeminiPromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type GeminiChatResponse struct {
	Candidates     []*GeminiChatCandidate `json:"candidates"`
	PromptFeedback *GeminiPromptFeedback  `json:"promptFeedback"`
}

type geminiApiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Finish reasons that mean the answer was withheld by a safety filter.
var blockedFinishReasons = map[string]bool{
	"SAFETY":             true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
}

type GeminiConfig struct {
	ApiKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &GeminiClient{
		apiKey:  cfg.ApiKey,
		model:   cfg.Model,
		baseURL: baseURL,
		client:  client,
	}
}

// GenerateContent sends one generateContent call and returns the joined text
// of the first candidate. An empty string with a nil error means the model
// answered with nothing.
func (c *GeminiClient) GenerateContent(ctx context.Context, contents []*GeminiChatContent) (string, error) {
	payload := GeminiChatRequest{
		Contents: contents,
	}
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return "", &Error{Kind: KindUnknown, Err: err}
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model),
		bytes.NewBuffer(payloadJson),
	)
	if err != nil {
		return "", &Error{Kind: KindUnknown, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resBody, _, err := c.do(req)
	if err != nil {
		return "", err
	}

	var geminiRes GeminiChatResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return "", &Error{Kind: KindUnknown, Err: fmt.Errorf("decode generateContent response: %w", err)}
	}

	if geminiRes.PromptFeedback != nil && geminiRes.PromptFeedback.BlockReason != "" {
		return "", blockedError(geminiRes.PromptFeedback.BlockReason)
	}
	if len(geminiRes.Candidates) == 0 {
		return "", nil
	}

	candidate := geminiRes.Candidates[0]
	text := candidateText(candidate)
	if text == "" && blockedFinishReasons[candidate.FinishReason] {
		return "", blockedError(candidate.FinishReason)
	}
	return text, nil
}

func candidateText(candidate *GeminiChatCandidate) string {
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// do sends req with the api key and returns the body of a 2xx response.
// Everything else becomes a *Error.
func (c *GeminiClient) do(req *http.Request) ([]byte, http.Header, error) {
	req.Header.Set("x-goog-api-key", c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, nil, transportError(err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, transportError(err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, nil, statusError(res.StatusCode, resBody)
	}
	return resBody, res.Header, nil
}

func apiErrorMessage(body []byte) string {
	var apiErr geminiApiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		if apiErr.Error.Status != "" {
			return apiErr.Error.Status + ": " + apiErr.Error.Message
		}
		return apiErr.Error.Message
	}
	return strings.TrimSpace(string(body))
}
