package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"insightdocs-be/internal/dto"
	"insightdocs-be/internal/entity"
	"insightdocs-be/internal/pkg/serverutils"
	"insightdocs-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-secret"

type fakeDocumentService struct {
	uploaded    *dto.UploadDocumentRequest
	uploadBody  string
	listRequest *dto.ListDocumentsRequest
	deleteErr   error
	chatErr     error
	deletedId   uint
}

func (f *fakeDocumentService) Authorize(ctx context.Context, userId uuid.UUID, documentId uint) (*entity.Document, error) {
	return nil, service.ErrDocumentNotFound
}

func (f *fakeDocumentService) Upload(ctx context.Context, ownerId uuid.UUID, req *dto.UploadDocumentRequest, content io.Reader) (*dto.UploadDocumentResponse, error) {
	body, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.uploaded = req
	f.uploadBody = string(body)
	return &dto.UploadDocumentResponse{Document: &dto.DocumentResponse{Id: 1, Title: req.Title}, SessionId: 9}, nil
}

func (f *fakeDocumentService) List(ctx context.Context, ownerId uuid.UUID, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error) {
	f.listRequest = req
	return &dto.ListDocumentsResponse{Limit: req.Limit, Offset: req.Offset}, nil
}

func (f *fakeDocumentService) ChatPage(ctx context.Context, ownerId uuid.UUID, documentId uint) (*dto.DocumentChatResponse, error) {
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &dto.DocumentChatResponse{SessionId: 4, Messages: []*dto.ChatHistoryMessage{}}, nil
}

func (f *fakeDocumentService) Delete(ctx context.Context, ownerId uuid.UUID, documentId uint) error {
	f.deletedId = documentId
	return f.deleteErr
}

func newTestApp(documents service.IDocumentService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewDocumentController(documents, testSecret).RegisterRoutes(app.Group("/api"))
	return app
}

func bearer(t *testing.T) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": uuid.NewString()}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestUploadDocument(t *testing.T) {
	documents := &fakeDocumentService{}
	app := newTestApp(documents)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("title", "Quarterly report"))
	part, err := form.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest("POST", "/api/documents/v1", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", bearer(t))

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, res.StatusCode)

	require.NotNil(t, documents.uploaded)
	assert.Equal(t, "Quarterly report", documents.uploaded.Title)
	assert.Equal(t, "report.pdf", documents.uploaded.OriginalName)
	assert.Equal(t, int64(8), documents.uploaded.SizeBytes)
	assert.Equal(t, "%PDF-1.4", documents.uploadBody)

	var envelope serverutils.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))
	assert.True(t, envelope.Success)
}

func TestUploadDocumentWithoutFile(t *testing.T) {
	app := newTestApp(&fakeDocumentService{})

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("title", "nothing attached"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest("POST", "/api/documents/v1", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", bearer(t))

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestListDocumentsPagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", query: "", wantStatus: fiber.StatusOK, wantLimit: 20, wantOffset: 0},
		{name: "explicit", query: "?limit=5&offset=10", wantStatus: fiber.StatusOK, wantLimit: 5, wantOffset: 10},
		{name: "limit too large", query: "?limit=500", wantStatus: fiber.StatusBadRequest},
		{name: "negative offset", query: "?offset=-1", wantStatus: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			documents := &fakeDocumentService{}
			app := newTestApp(documents)

			req := httptest.NewRequest("GET", "/api/documents/v1"+tt.query, nil)
			req.Header.Set("Authorization", bearer(t))
			res, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.StatusCode)

			if tt.wantStatus == fiber.StatusOK {
				require.NotNil(t, documents.listRequest)
				assert.Equal(t, tt.wantLimit, documents.listRequest.Limit)
				assert.Equal(t, tt.wantOffset, documents.listRequest.Offset)
			}
		})
	}
}

func TestChatPageErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		chatErr    error
		wantStatus int
	}{
		{name: "found", path: "/api/documents/v1/4/chat", wantStatus: fiber.StatusOK},
		{name: "missing", path: "/api/documents/v1/4/chat", chatErr: service.ErrDocumentNotFound, wantStatus: fiber.StatusNotFound},
		{name: "not owner", path: "/api/documents/v1/4/chat", chatErr: service.ErrDocumentForbidden, wantStatus: fiber.StatusNotFound},
		{name: "bad id", path: "/api/documents/v1/four/chat", wantStatus: fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&fakeDocumentService{chatErr: tt.chatErr})
			req := httptest.NewRequest("GET", tt.path, nil)
			req.Header.Set("Authorization", bearer(t))
			res, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.StatusCode)
		})
	}
}

func TestDeleteDocument(t *testing.T) {
	documents := &fakeDocumentService{}
	app := newTestApp(documents)

	req := httptest.NewRequest("DELETE", "/api/documents/v1/12", nil)
	req.Header.Set("Authorization", bearer(t))
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, uint(12), documents.deletedId)
}

func TestDocumentRoutesRequireToken(t *testing.T) {
	app := newTestApp(&fakeDocumentService{})

	res, err := app.Test(httptest.NewRequest("GET", "/api/documents/v1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}
