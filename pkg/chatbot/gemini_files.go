package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

const (
	FileStateProcessing = "PROCESSING"
	FileStateActive     = "ACTIVE"
	FileStateFailed     = "FAILED"
)

type GeminiFile struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	MimeType    string `json:"mimeType"`
	SizeBytes   string `json:"sizeBytes"`
	URI         string `json:"uri"`
	State       string `json:"state"`
}

type geminiUploadStartRequest struct {
	File struct {
		DisplayName string `json:"display_name"`
	} `json:"file"`
}

type geminiUploadResponse struct {
	File *GeminiFile `json:"file"`
}

// UploadFile pushes a local file through the Files API resumable protocol
// (start, then a single upload+finalize request).
func (c *GeminiClient) UploadFile(ctx context.Context, path string, mimeType string) (*GeminiFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}
	size := strconv.FormatInt(info.Size(), 10)

	var startPayload geminiUploadStartRequest
	startPayload.File.DisplayName = filepath.Base(path)
	startJson, err := json.Marshal(startPayload)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}

	startReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/upload/v1beta/files",
		bytes.NewBuffer(startJson),
	)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}
	startReq.Header.Set("Content-Type", "application/json")
	startReq.Header.Set("X-Goog-Upload-Protocol", "resumable")
	startReq.Header.Set("X-Goog-Upload-Command", "start")
	startReq.Header.Set("X-Goog-Upload-Header-Content-Length", size)
	startReq.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)

	_, header, err := c.do(startReq)
	if err != nil {
		return nil, err
	}
	uploadURL := header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return nil, &Error{Kind: KindUnknown, Message: "upload session did not return an upload url"}
	}

	uploadReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, f)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}
	uploadReq.ContentLength = info.Size()
	uploadReq.Header.Set("Content-Type", mimeType)
	uploadReq.Header.Set("X-Goog-Upload-Offset", "0")
	uploadReq.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	resBody, _, err := c.do(uploadReq)
	if err != nil {
		return nil, err
	}

	var uploadRes geminiUploadResponse
	if err := json.Unmarshal(resBody, &uploadRes); err != nil {
		return nil, &Error{Kind: KindUnknown, Err: fmt.Errorf("decode upload response: %w", err)}
	}
	if uploadRes.File == nil || uploadRes.File.Name == "" {
		return nil, &Error{Kind: KindUnknown, Message: "upload response carried no file"}
	}
	return uploadRes.File, nil
}

// GetFile reads the current state of an uploaded file, name being "files/<id>".
func (c *GeminiClient) GetFile(ctx context.Context, name string) (*GeminiFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1beta/%s", c.baseURL, name), nil)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}

	resBody, _, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var file GeminiFile
	if err := json.Unmarshal(resBody, &file); err != nil {
		return nil, &Error{Kind: KindUnknown, Err: fmt.Errorf("decode file: %w", err)}
	}
	return &file, nil
}
