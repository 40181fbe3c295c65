package entity

import "time"

type ChatMessage struct {
	Id        uint
	SessionId uint
	Role      string
	Content   string
	CreatedAt time.Time
}
