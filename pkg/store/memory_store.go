package store

import (
	"sync"
	"time"

	"aichat/pkg/domain"
)

// MemoryStore keeps users and messages in-process. It backs tests; the
// server itself always runs against the database-backed store.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[uint]domain.User
	byName   map[string]uint
	messages map[uint][]domain.Message
	nextUser uint
	nextMsg  uint
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uint]domain.User),
		byName:   make(map[string]uint),
		messages: make(map[uint][]domain.Message),
	}
}

// CreateUser registers a user or fails on a duplicate username, leaving the
// store unchanged.
func (m *MemoryStore) CreateUser(username, passwordHash string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[username]; exists {
		return domain.User{}, ErrDuplicateUsername
	}
	m.nextUser++
	user := domain.User{
		ID:           m.nextUser,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[user.ID] = user
	m.byName[username] = user.ID
	return user, nil
}

// GetUserByUsername looks up a user by username.
func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	if !ok {
		return domain.User{}, false, nil
	}
	user, exists := m.users[id]
	return user, exists, nil
}

// GetUserByID returns a user by id.
func (m *MemoryStore) GetUserByID(id uint) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	return user, ok, nil
}

// UserCount returns the number of users.
func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// AppendMessage records a turn under its user id.
func (m *MemoryStore) AppendMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsg++
	msg.ID = m.nextMsg
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	var key uint
	if msg.UserID != nil {
		key = *msg.UserID
	}
	m.messages[key] = append(m.messages[key], msg)
	return nil
}

// ListMessages returns a user's turns in append order.
func (m *MemoryStore) ListMessages(userID uint, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[userID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}
