// Package notifier delivers alert messages through the Telegram Bot API.
package notifier

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"HomeMonitorAPI/internal/logger"

	"github.com/go-resty/resty/v2"
)

const (
	apiBaseURL     = "https://api.telegram.org"
	requestTimeout = 10 * time.Second
)

// NetworkError means the request never produced an HTTP response
// (DNS failure, refused connection, timeout).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("telegram network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError means the Bot API answered with a non-200 status code.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("telegram HTTP error: status %d", e.StatusCode)
}

// APIError means the Bot API answered 200 but reported ok=false.
type APIError struct {
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error: %s", e.Description)
}

type SendResult struct {
	MessageID int64 `json:"message_id"`
}

type BotInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"first_name"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Telegram is a thin Bot API client. Credentials can be swapped at
// runtime when the alerting config file changes.
type Telegram struct {
	http *resty.Client
	log  *logger.Logger

	mu       sync.RWMutex
	botToken string
	chatID   string
}

func NewTelegram(log *logger.Logger) *Telegram {
	client := resty.New().
		SetBaseURL(apiBaseURL).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json")

	return &Telegram{
		http: client,
		log:  log,
	}
}

// SetCredentials replaces the bot token and chat id used for subsequent
// requests.
func (t *Telegram) SetCredentials(botToken, chatID string) {
	t.mu.Lock()
	t.botToken = botToken
	t.chatID = chatID
	t.mu.Unlock()
}

func (t *Telegram) IsConfigured() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.botToken != "" && t.chatID != ""
}

func (t *Telegram) credentials() (string, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.botToken, t.chatID
}

// SendMessage posts an HTML-formatted message to the configured chat.
// A single attempt is made; retry policy belongs to the caller.
func (t *Telegram) SendMessage(text string) (*SendResult, error) {
	token, chatID := t.credentials()
	if token == "" || chatID == "" {
		return nil, &APIError{Description: "bot token or chat id not configured"}
	}

	body := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	raw, err := t.call(token, "sendMessage", body)
	if err != nil {
		return nil, err
	}

	var result SendResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &APIError{Description: fmt.Sprintf("malformed result: %v", err)}
	}

	t.log.Debug("Telegram message sent (id: %d)", result.MessageID)
	return &result, nil
}

// GetMe fetches the bot's own identity, used to verify credentials.
func (t *Telegram) GetMe() (*BotInfo, error) {
	token, _ := t.credentials()
	if token == "" {
		return nil, &APIError{Description: "bot token not configured"}
	}

	raw, err := t.call(token, "getMe", nil)
	if err != nil {
		return nil, err
	}

	var info BotInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, &APIError{Description: fmt.Sprintf("malformed result: %v", err)}
	}

	return &info, nil
}

func (t *Telegram) call(token, method string, body any) (json.RawMessage, error) {
	req := t.http.R()
	if body != nil {
		req.SetBody(body)
	}

	var resp *resty.Response
	var err error
	url := fmt.Sprintf("/bot%s/%s", token, method)
	if body != nil {
		resp, err = req.Post(url)
	} else {
		resp, err = req.Get(url)
	}
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	var parsed apiResponse
	if unmarshalErr := json.Unmarshal(resp.Body(), &parsed); unmarshalErr != nil {
		if resp.StatusCode() != 200 {
			return nil, &HTTPError{StatusCode: resp.StatusCode()}
		}
		return nil, &APIError{Description: fmt.Sprintf("malformed response: %v", unmarshalErr)}
	}

	// A well-formed ok=false body is more specific than the status code.
	if !parsed.OK {
		if parsed.Description != "" {
			return nil, &APIError{Description: parsed.Description}
		}
		if resp.StatusCode() != 200 {
			return nil, &HTTPError{StatusCode: resp.StatusCode()}
		}
		return nil, &APIError{Description: "unknown error"}
	}

	if resp.StatusCode() != 200 {
		return nil, &HTTPError{StatusCode: resp.StatusCode()}
	}

	return parsed.Result, nil
}

// BaseURLForTesting overrides the API endpoint. Test hook only.
func (t *Telegram) BaseURLForTesting(url string) {
	t.http.SetBaseURL(url)
}

// MaskToken renders a token safe for display, keeping only the first
// ten and last five characters.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 15 {
		return "..."
	}
	return token[:10] + "..." + token[len(token)-5:]
}
