package domain

import "time"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type User struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Message is one turn in a user's conversation log.
type Message struct {
	ID        uint              `json:"id"`
	UserID    *uint             `json:"userId,omitempty"`
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"time"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Session is the identity bound to a session token.
type Session struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
}
