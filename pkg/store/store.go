package store

import (
	"errors"

	"aichat/pkg/domain"
)

// ErrDuplicateUsername is returned by CreateUser when the username is taken.
// The insert is atomic: on conflict nothing is written.
var ErrDuplicateUsername = errors.New("username already exists")

// Store defines persistence operations for users and conversation turns.
type Store interface {
	// users
	CreateUser(username, passwordHash string) (domain.User, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	GetUserByID(id uint) (domain.User, bool, error)
	UserCount() (int, error)

	// conversation log, keyed by user identity
	AppendMessage(msg domain.Message) error
	ListMessages(userID uint, limit int) ([]domain.Message, error)
}

// SessionStore issues and resolves session tokens.
type SessionStore interface {
	NewSession(userID uint, username string) (string, error)
	GetSession(token string) (domain.Session, bool, error)
	DeleteSession(token string) error
}
