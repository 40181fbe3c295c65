package service

import "errors"

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDocumentForbidden = errors.New("document belongs to another user")
	ErrEmptyMessage      = errors.New("message cannot be empty")
	ErrConnectionClosed  = errors.New("chat connection closed")
)
