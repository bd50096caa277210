// Package app holds the core application service: authentication, the
// conversation log, and delegation to the external model, PDF, and speech
// collaborators.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"aichat/internal/util"
	"aichat/pkg/ai"
	"aichat/pkg/auth"
	"aichat/pkg/domain"
	"aichat/pkg/pdftext"
	"aichat/pkg/storage"
	"aichat/pkg/store"
	"aichat/pkg/tts"
)

const (
	// pdfCharBudget caps how much extracted text is sent to the model.
	pdfCharBudget = 5000

	pdfPromptTemplate = "Summarize this PDF and answer any questions about it:\n"

	defaultCallTimeout = 30 * time.Second
)

// Generator produces model text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// Synthesizer produces MP3 audio for text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Config holds runtime configuration for the core application. Store,
// Sessions, Generator, Speech, and Archive may be injected (tests); otherwise
// they are built from the remaining fields. Generator and Speech are
// capabilities: leaving them unset and providing no API key / disabling TTS
// yields a service that answers 503 on the corresponding routes.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	SessionSecret string
	SessionTTL    time.Duration

	GeminiAPIKey string
	ModelName    string

	TTSEnabled  bool
	TTSLanguage string
	TTSBaseURL  string

	CallTimeout time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	Store     store.Store
	Sessions  store.SessionStore
	Generator Generator
	Speech    Synthesizer
	Archive   storage.ObjectStore
}

// App is the core application service wiring storage, sessions, and the
// external collaborators together.
type App struct {
	store       store.Store
	sessions    store.SessionStore
	generator   Generator
	model       string
	speech      Synthesizer
	archive     storage.ObjectStore
	callTimeout time.Duration
}

// New constructs the application. Capability flags are resolved here, once;
// handlers never re-probe.
func New(cfg Config) (*App, error) {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		var revoker store.TokenRevoker
		if strings.TrimSpace(cfg.RedisAddr) != "" {
			revoker = store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
		}
		var err error
		sessionStore, err = store.NewJWTSessionStore(cfg.SessionSecret, cfg.SessionTTL, revoker)
		if err != nil {
			return nil, fmt.Errorf("init session store: %w", err)
		}
	}

	generator := cfg.Generator
	if generator == nil && strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey, ai.WithTimeout(cfg.CallTimeout))
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		generator = client
	}

	speech := cfg.Speech
	if speech == nil && cfg.TTSEnabled {
		opts := []tts.Option{
			tts.WithLanguage(cfg.TTSLanguage),
			tts.WithTimeout(cfg.CallTimeout),
		}
		if cfg.TTSBaseURL != "" {
			opts = append(opts, tts.WithBaseURL(cfg.TTSBaseURL))
		}
		speech = tts.NewClient(opts...)
	}

	archive := cfg.Archive
	if archive == nil && cfg.MinioEndpoint != "" {
		minioStore, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
		archive = minioStore
	}

	return &App{
		store:       dataStore,
		sessions:    sessionStore,
		generator:   generator,
		model:       cfg.ModelName,
		speech:      speech,
		archive:     archive,
		callTimeout: cfg.CallTimeout,
	}, nil
}

// ModelConfigured reports whether the generative-model capability is present.
func (a *App) ModelConfigured() bool { return a.generator != nil }

// SpeechConfigured reports whether the speech-synthesis capability is present.
func (a *App) SpeechConfigured() bool { return a.speech != nil }

// SignUp registers a new user. The password is hashed before storage; a
// duplicate username fails without mutating state.
func (a *App) SignUp(username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, ErrUsernameAndPasswordRequired
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := a.store.CreateUser(username, passwordHash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return domain.User{}, ErrDuplicateUsername
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login validates credentials and issues a session token. Unknown usernames
// and wrong passwords fail identically.
func (a *App) Login(username, password string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	user, ok, err := a.store.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID, user.Username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// SessionFromToken resolves a session token to the identity it carries. The
// user must still exist in the store; a token minted for a since-removed user
// does not resolve.
func (a *App) SessionFromToken(token string) (domain.Session, bool) {
	sess, ok, err := a.sessions.GetSession(token)
	if err != nil || !ok {
		return domain.Session{}, false
	}
	if _, found, err := a.store.GetUserByID(sess.UserID); err != nil || !found {
		return domain.Session{}, false
	}
	return sess, true
}

// Logout revokes the session token. Invalid tokens are ignored; logout is
// unconditional.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// Ask records the question, delegates it verbatim to the model, records the
// reply, and returns it. A failed model call becomes a textual answer rather
// than an error; only validation and missing configuration fail.
func (a *App) Ask(ctx context.Context, userID uint, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	uid := userID
	if err := a.appendTurn(ctx, &uid, domain.RoleUser, question); err != nil {
		return "", err
	}

	if a.generator == nil {
		return "", ErrModelNotConfigured
	}

	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	answer, err := a.generator.GenerateText(callCtx, a.model, question)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("model call failed", "err", err)
		answer = fmt.Sprintf("Sorry, I hit an error: %v", err)
	}

	if err := a.appendTurn(ctx, &uid, domain.RoleAssistant, answer); err != nil {
		return "", err
	}
	return answer, nil
}

// SummarizePDF extracts text from the uploaded PDF, truncates it to the
// fixed character budget, and asks the model for a summary. A failed model
// call becomes a textual summary; extraction problems are validation errors.
func (a *App) SummarizePDF(ctx context.Context, filename string, file io.Reader) (string, error) {
	if a.generator == nil {
		return "", ErrModelNotConfigured
	}

	tmp, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	size, err := io.Copy(tmp, file)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}

	text, err := pdftext.Extract(tmp.Name())
	if err != nil {
		util.LoggerFromContext(ctx).Warn("pdf extraction failed", "file", filename, "err", err)
		return "", ErrNoExtractableText
	}
	if text == "" {
		return "", ErrNoExtractableText
	}

	a.archiveUpload(ctx, tmp.Name(), size)

	prompt := pdfPromptTemplate + pdftext.Truncate(text, pdfCharBudget)
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	summary, err := a.generator.GenerateText(callCtx, a.model, prompt)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("model call failed", "err", err)
		summary = fmt.Sprintf("Error summarizing PDF: %v", err)
	}
	return summary, nil
}

// Synthesize converts text to MP3 audio via the speech capability.
func (a *App) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if a.speech == nil {
		return nil, ErrSpeechNotConfigured
	}
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	audio, err := a.speech.Synthesize(callCtx, text)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	return audio, nil
}

// Conversation returns a user's logged turns, for display and debugging.
func (a *App) Conversation(userID uint, limit int) ([]domain.Message, error) {
	return a.store.ListMessages(userID, limit)
}

func (a *App) appendTurn(ctx context.Context, userID *uint, role domain.Role, content string) error {
	msg := domain.Message{
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	metadata := map[string]string{}
	if role == domain.RoleAssistant && a.model != "" {
		metadata["model"] = a.model
	}
	if requestID := util.RequestIDFromContext(ctx); requestID != "" {
		metadata["request_id"] = requestID
	}
	if len(metadata) > 0 {
		msg.Metadata = metadata
	}
	if err := a.store.AppendMessage(msg); err != nil {
		return fmt.Errorf("append %s turn: %w", role, err)
	}
	return nil
}

// archiveUpload keeps a copy of the raw PDF in object storage when that
// capability is configured. Best-effort: failure is logged, never surfaced.
func (a *App) archiveUpload(ctx context.Context, path string, size int64) {
	if a.archive == nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("archive upload failed", "err", err)
		return
	}
	defer f.Close()
	key := "uploads/" + uuid.NewString() + ".pdf"
	if err := a.archive.Put(ctx, key, f, size, "application/pdf"); err != nil {
		util.LoggerFromContext(ctx).Warn("archive upload failed", "key", key, "err", err)
		return
	}
	util.LoggerFromContext(ctx).Info("upload archived", "key", key)
}
