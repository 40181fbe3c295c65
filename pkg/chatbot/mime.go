package chatbot

import (
	"path/filepath"
	"strings"
)

const MimeTypeOctetStream = "application/octet-stream"

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".txt":  "text/plain",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

func MimeTypeFor(path string) string {
	if mimeType, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mimeType
	}
	return MimeTypeOctetStream
}
