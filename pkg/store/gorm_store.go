package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"aichat/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. Migration is
// create-if-absent, so startup is idempotent.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &MessageModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateUser inserts a user, failing without side effects when the username
// is taken.
func (s *GormStore) CreateUser(username, passwordHash string) (domain.User, error) {
	model := UserModel{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoNothing: true,
	}).Create(&model)
	if res.Error != nil {
		return domain.User{}, fmt.Errorf("create user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.User{}, ErrDuplicateUsername
	}
	return userFromModel(model), nil
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("username = ?", username).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return userFromModel(model), true, nil
}

// GetUserByID looks up a user by id.
func (s *GormStore) GetUserByID(id uint) (domain.User, bool, error) {
	var model UserModel
	err := s.db.First(&model, id).Error
	if err == gorm.ErrRecordNotFound {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return userFromModel(model), true, nil
}

// UserCount returns the number of registered users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return int(count), nil
}

// AppendMessage records one conversation turn. Each insert is a single
// atomic statement; the store's own concurrency control covers concurrent
// appends from different requests.
func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := MessageModel{
		UserID:    msg.UserID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if len(msg.Metadata) > 0 {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("encode message metadata: %w", err)
		}
		model.Metadata = datatypes.JSON(raw)
	}
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages returns a user's turns in chronological order, newest-last,
// capped at limit when limit > 0.
func (s *GormStore) ListMessages(userID uint, limit int) ([]domain.Message, error) {
	q := s.db.Where("user_id = ?", userID).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []MessageModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	messages := make([]domain.Message, 0, len(models))
	for _, model := range models {
		messages = append(messages, messageFromModel(model))
	}
	return messages, nil
}

func userFromModel(model UserModel) domain.User {
	return domain.User{
		ID:           model.ID,
		Username:     model.Username,
		PasswordHash: model.PasswordHash,
		CreatedAt:    model.CreatedAt,
	}
}

func messageFromModel(model MessageModel) domain.Message {
	msg := domain.Message{
		ID:        model.ID,
		UserID:    model.UserID,
		Role:      domain.Role(model.Role),
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}
	if len(model.Metadata) > 0 {
		meta := map[string]string{}
		if err := json.Unmarshal(model.Metadata, &meta); err == nil {
			msg.Metadata = meta
		}
	}
	return msg
}
