package server

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"aichat/internal/app"
	"aichat/internal/util"
	"aichat/pkg/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookieName = "session_token"

// historyLimit caps how many logged turns the chat page renders.
const historyLimit = 100

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	MaxUploadBytes int64
}

// Server exposes the web surface: server-rendered auth pages, the chat page,
// and the JSON endpoints backing it.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	templates      *template.Template
	maxUploadBytes int64
}

// New constructs the server with routes configured and templates parsed.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app is required")
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		templates:      tmpl,
		maxUploadBytes: normalizeMaxBytes(cfg.MaxUploadBytes),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the shared middleware.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithRequestLog(util.WithRequestID(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// pages
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/signup", s.handleSignup)
	s.mux.HandleFunc("/logout", s.handleLogout)

	// chat API (auth required)
	s.mux.Handle("/ask", s.authenticated(s.handleAsk))
	s.mux.Handle("/pdf", s.authenticated(s.handlePDF))
	s.mux.Handle("/tts", s.authenticated(s.handleTTS))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session plumbing
type sessionHandler func(http.ResponseWriter, *http.Request, domain.Session)

func (s *Server) authenticated(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "authentication required"})
			return
		}
		next(w, r, sess)
	})
}

func (s *Server) session(r *http.Request) (domain.Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return domain.Session{}, false
	}
	return s.app.SessionFromToken(cookie.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// pages

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, ok := s.session(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	messages, err := s.app.Conversation(sess.UserID, historyLimit)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("load conversation", "error", err)
		messages = nil
	}
	s.renderPage(w, r, "index.html", map[string]any{
		"Username": sess.Username,
		"Messages": messages,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderPage(w, r, "login.html", nil)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			s.renderPage(w, r, "login.html", map[string]any{"Error": "Invalid form submission."})
			return
		}
		username := r.PostFormValue("username")
		password := r.PostFormValue("password")
		_, token, err := s.app.Login(username, password)
		if err != nil {
			s.renderPage(w, r, "login.html", map[string]any{"Error": formError(err)})
			return
		}
		s.setSessionCookie(w, token)
		http.Redirect(w, r, "/", http.StatusFound)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderPage(w, r, "signup.html", nil)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			s.renderPage(w, r, "signup.html", map[string]any{"Error": "Invalid form submission."})
			return
		}
		username := r.PostFormValue("username")
		password := r.PostFormValue("password")
		if _, err := s.app.SignUp(username, password); err != nil {
			s.renderPage(w, r, "signup.html", map[string]any{"Error": formError(err)})
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := s.app.Logout(cookie.Value); err != nil {
			util.LoggerFromContext(r.Context()).Warn("logout failed", "error", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		util.LoggerFromContext(r.Context()).Error("render template", "template", name, "error", err)
	}
}

// formError keeps auth failures as human-readable form text. Anything
// unexpected gets a generic message instead of an internal error string.
func formError(err error) string {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrDuplicateUsername):
		return err.Error()
	case errors.Is(err, app.ErrUsernameAndPasswordRequired):
		return "Username and password are required."
	default:
		return "Something went wrong. Please try again."
	}
}

// chat API

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	OK     bool   `json:"ok"`
	Answer string `json:"answer"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req askRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, askResponse{OK: false, Answer: "Please ask a valid question."})
		return
	}
	answer, err := s.app.Ask(r.Context(), sess.UserID, req.Question)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, askResponse{OK: true, Answer: answer})
	case errors.Is(err, app.ErrEmptyQuestion):
		writeJSON(w, http.StatusBadRequest, askResponse{OK: false, Answer: "Please ask a valid question."})
	case errors.Is(err, app.ErrModelNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, askResponse{OK: false, Answer: "Gemini API not configured."})
	default:
		util.LoggerFromContext(r.Context()).Error("ask failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, askResponse{OK: false, Answer: "Internal server error."})
	}
}

type pdfResponse struct {
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.app.ModelConfigured() {
		writeJSON(w, http.StatusServiceUnavailable, pdfResponse{OK: false, Summary: "Gemini API not configured."})
		return
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, pdfResponse{OK: false, Summary: "No PDF uploaded."})
		return
	}
	file, header, err := r.FormFile("pdf")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, pdfResponse{OK: false, Summary: "No PDF uploaded."})
		return
	}
	defer file.Close()

	summary, err := s.app.SummarizePDF(r.Context(), header.Filename, file)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, pdfResponse{OK: true, Summary: summary})
	case errors.Is(err, app.ErrNoExtractableText):
		writeJSON(w, http.StatusBadRequest, pdfResponse{OK: false, Summary: "Could not extract text from PDF."})
	case errors.Is(err, app.ErrModelNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, pdfResponse{OK: false, Summary: "Gemini API not configured."})
	default:
		util.LoggerFromContext(r.Context()).Error("pdf summarize failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, pdfResponse{OK: false, Summary: "Internal server error."})
	}
}

type ttsRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req ttsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeTTSError(w, http.StatusBadRequest, "No text provided.")
		return
	}
	audio, err := s.app.Synthesize(r.Context(), req.Text)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(audio)
	case errors.Is(err, app.ErrEmptyText):
		writeTTSError(w, http.StatusBadRequest, "No text provided.")
	case errors.Is(err, app.ErrSpeechNotConfigured):
		writeTTSError(w, http.StatusServiceUnavailable, "Speech synthesis not configured; use browser speech.")
	default:
		writeTTSError(w, http.StatusInternalServerError, fmt.Sprintf("TTS error: %v", err))
	}
}

func writeTTSError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 20 * 1024 * 1024
	}
	return value
}
