package model

import "time"

type ChatMessage struct {
	Id        uint      `gorm:"primaryKey;autoIncrement"`
	SessionId uint      `gorm:"not null;index:idx_chat_messages_session_created,priority:1"`
	Role      string    `gorm:"type:varchar(20);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_chat_messages_session_created,priority:2"`

	Session *ChatSession `gorm:"foreignKey:SessionId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// All returns every model the service migrates.
func All() []interface{} {
	return []interface{}{&Document{}, &ChatSession{}, &ChatMessage{}}
}
