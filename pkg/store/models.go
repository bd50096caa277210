package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type MessageModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    *uint  `gorm:"index"`
	Role      string `gorm:"not null"`
	Content   string `gorm:"type:text;not null"`
	Metadata  datatypes.JSON
	CreatedAt time.Time `gorm:"not null;index"`
}

func (MessageModel) TableName() string { return "chat_messages" }
