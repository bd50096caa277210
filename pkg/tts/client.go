// Package tts synthesizes speech via a Google-Translate-style TTS endpoint.
package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://translate.google.com/translate_tts"
	defaultLang    = "en"

	// The upstream rejects queries longer than this, so longer text is
	// synthesized in chunks and the MP3 segments concatenated.
	maxChunkRunes = 200
)

// Client fetches MP3 audio for text.
type Client struct {
	baseURL    string
	lang       string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the synthesis endpoint. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLanguage sets the synthesis language code.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if strings.TrimSpace(lang) != "" {
			c.lang = lang
		}
	}
}

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient constructs a synthesis client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		lang:       defaultLang,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Synthesize returns MP3 bytes for the given text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text required")
	}
	var audio []byte
	for _, chunk := range splitText(text, maxChunkRunes) {
		segment, err := c.fetchChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		audio = append(audio, segment...)
	}
	return audio, nil
}

func (c *Client) fetchChunk(ctx context.Context, chunk string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", c.lang)
	params.Set("q", chunk)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("tts upstream error: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// splitText breaks text into chunks of at most max runes, preferring to split
// on whitespace.
func splitText(text string, max int) []string {
	words := strings.Fields(text)
	var chunks []string
	var current strings.Builder
	currentLen := 0
	for _, word := range words {
		wordLen := len([]rune(word))
		for wordLen > max {
			// A single oversized word is split hard.
			runes := []rune(word)
			if currentLen > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
				currentLen = 0
			}
			chunks = append(chunks, string(runes[:max]))
			word = string(runes[max:])
			wordLen = len([]rune(word))
		}
		if wordLen == 0 {
			continue
		}
		if currentLen > 0 && currentLen+1+wordLen > max {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += wordLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
