// Package telegram is a small Bot API client covering what the bot sends:
// text messages with inline keyboards, edits, callback answers and documents.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediabot/internal/apperr"
	"mediabot/pkg/models"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// --- Request Structures ---

type sendMessageRequest struct {
	ChatID      int64                        `json:"chat_id"`
	Text        string                       `json:"text"`
	ReplyMarkup *models.InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type editMessageTextRequest struct {
	ChatID      int64                        `json:"chat_id"`
	MessageID   int64                        `json:"message_id"`
	Text        string                       `json:"text"`
	ReplyMarkup *models.InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type answerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

type sendDocumentRequest struct {
	ChatID   int64  `json:"chat_id"`
	Document string `json:"document"`
	Caption  string `json:"caption,omitempty"`
}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// --- Helper Functions ---

// call posts body to the Bot API method and decodes the result into out.
// Rejections by Telegram are classified: 400 as malformed, 403 (bot blocked)
// as forbidden, everything else as unavailable.
func (c *Client) call(ctx context.Context, method string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of the error.
		return apperr.New(apperr.KindUnavailable, method+": request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, method, err)
	}

	var r apiResponse
	if err := json.Unmarshal(respBody, &r); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, method, fmt.Errorf("decode response (%s): %w", resp.Status, err))
	}
	if !r.OK {
		cause := fmt.Errorf("API error: %d - %s", r.ErrorCode, r.Description)
		switch r.ErrorCode {
		case http.StatusBadRequest:
			return apperr.Wrap(apperr.KindMalformed, method, cause)
		case http.StatusForbidden:
			return apperr.Wrap(apperr.KindForbidden, method, cause)
		default:
			return apperr.Wrap(apperr.KindUnavailable, method, cause)
		}
	}

	if out != nil {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return apperr.Wrap(apperr.KindUnavailable, method, err)
		}
	}
	return nil
}

func markup(keyboard [][]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

// --- Messaging Methods ---

// SendMessage sends text to chatID and returns the new message id.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]models.InlineKeyboardButton) (int64, error) {
	var msg models.Message
	err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup(keyboard),
	}, &msg)
	return msg.MessageID, err
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := c.SendMessage(ctx, chatID, text, nil)
	return err
}

// EditMessageText replaces the text and keyboard of an existing message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard [][]models.InlineKeyboardButton) error {
	return c.call(ctx, "editMessageText", editMessageTextRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: markup(keyboard),
	}, nil)
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackQueryRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	}, nil)
}

// SendDocument re-sends a file already stored on Telegram by its file_id.
func (c *Client) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	return c.call(ctx, "sendDocument", sendDocumentRequest{
		ChatID:   chatID,
		Document: fileID,
		Caption:  caption,
	}, nil)
}

// --- Setup Methods ---

// SetWebhook points Telegram at url. Updates will carry secret in the
// X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	return c.call(ctx, "setWebhook", setWebhookRequest{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message", "callback_query"},
	}, nil)
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.call(ctx, "getMe", struct{}{}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
