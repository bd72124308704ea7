// Package telegram is a thin sender for the Telegram Bot API: HTML text
// messages and voice notes, throttled by a shared token-bucket limiter so
// broadcast fan-out stays under the Bot API flood limits.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/book-expert/logger"
)

const (
	defaultBaseURL = "https://api.telegram.org"

	methodSendMessage = "sendMessage"
	methodSendVoice   = "sendVoice"

	parseModeHTML = "HTML"

	voiceFieldName = "voice"
	voiceFileName  = "halacha.ogg"

	httpTimeout = 30 * time.Second
)

// ErrAPIRejected indicates the Bot API returned ok=false for a request.
var ErrAPIRejected = errors.New("telegram api rejected request")

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	Description string `json:"description"`
	OK          bool   `json:"ok"`
}

// Client sends messages and voice notes through the Bot API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
	baseURL    string
	token      string
}

// NewClient creates a sender for the given bot token. messagesPerSecond
// bounds the sustained send rate across all recipients.
func NewClient(
	token string,
	messagesPerSecond float64,
	log *logger.Logger,
) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		limiter:    rate.NewLimiter(rate.Limit(messagesPerSecond), 1),
		log:        log,
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// SetBaseURL overrides the Bot API host, for tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SendMessage delivers an HTML-formatted text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for send slot: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               parseModeHTML,
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	request, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.methodURL(methodSendMessage),
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create message request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	return c.do(request, methodSendMessage)
}

// SendVoice delivers an OGG Opus voice note with a caption to a chat.
func (c *Client) SendVoice(
	ctx context.Context,
	chatID string,
	audio []byte,
	caption string,
) error {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for send slot: %w", err)
	}

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	err = writer.WriteField("chat_id", chatID)
	if err != nil {
		return fmt.Errorf("failed to write chat_id field: %w", err)
	}

	if caption != "" {
		err = writer.WriteField("caption", caption)
		if err != nil {
			return fmt.Errorf("failed to write caption field: %w", err)
		}
	}

	part, err := writer.CreateFormFile(voiceFieldName, voiceFileName)
	if err != nil {
		return fmt.Errorf("failed to create voice form file: %w", err)
	}

	_, err = part.Write(audio)
	if err != nil {
		return fmt.Errorf("failed to write voice data: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	request, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.methodURL(methodSendVoice), &body)
	if err != nil {
		return fmt.Errorf("failed to create voice request: %w", err)
	}

	request.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(request, methodSendVoice)
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) do(request *http.Request, method string) error {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}

	defer func() {
		closeErr := response.Body.Close()
		if closeErr != nil {
			c.log.Warn("Failed to close response body: %v", closeErr)
		}
	}()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var envelope apiResponse

	err = json.Unmarshal(responseBody, &envelope)
	if err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	if !envelope.OK {
		return fmt.Errorf("%w: %s: %s", ErrAPIRejected, method, envelope.Description)
	}

	return nil
}
