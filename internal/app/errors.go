package app

import "errors"

var (
	// ErrInvalidCredentials is returned for unknown usernames and wrong
	// passwords alike, so login failures do not reveal which one it was.
	ErrInvalidCredentials = errors.New("Invalid username or password.")

	// ErrDuplicateUsername is returned when signup hits an existing username.
	ErrDuplicateUsername = errors.New("Username already exists.")

	ErrUsernameAndPasswordRequired = errors.New("username and password required")

	// ErrEmptyQuestion rejects empty or whitespace-only questions.
	ErrEmptyQuestion = errors.New("question required")

	// ErrEmptyText rejects empty speech-synthesis input.
	ErrEmptyText = errors.New("text required")

	// ErrNoExtractableText is returned when a PDF yields no text.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrModelNotConfigured signals the absence of the generative model
	// capability.
	ErrModelNotConfigured = errors.New("Gemini API not configured.")

	// ErrSpeechNotConfigured signals the absence of the speech-synthesis
	// capability.
	ErrSpeechNotConfigured = errors.New("speech synthesis not configured")
)
