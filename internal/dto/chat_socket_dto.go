package dto

import (
	"time"

	"insightdocs-be/internal/constant"
	"insightdocs-be/internal/entity"
)

// TimestampLayout is ISO 8601 with microseconds and offset.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type InboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type MessageFrame struct {
	Type      string `json:"type"`
	Id        uint   `json:"id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type AiThinkingFrame struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type UserTypingFrame struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RoomEvent travels between members of a room, locally or through redis.
type RoomEvent struct {
	Type     string `json:"type"`
	SenderId string `json:"sender_id"`
	User     string `json:"user"`
}

func NewUserMessageFrame(msg *entity.ChatMessage) MessageFrame {
	return newMessageFrame(constant.FrameTypeUserMessage, msg)
}

func NewAiMessageFrame(msg *entity.ChatMessage) MessageFrame {
	return newMessageFrame(constant.FrameTypeAiMessage, msg)
}

func newMessageFrame(frameType string, msg *entity.ChatMessage) MessageFrame {
	return MessageFrame{
		Type:      frameType,
		Id:        msg.Id,
		Content:   msg.Content,
		Timestamp: FormatTimestamp(msg.CreatedAt),
	}
}

func NewErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: constant.FrameTypeError, Message: message}
}

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
