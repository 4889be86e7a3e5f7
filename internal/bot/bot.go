// Package bot routes Telegram updates to the search orchestrator and renders
// its replies through the Bot API.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"mediabot/internal/notify"
	"mediabot/internal/search"
	"mediabot/internal/tier"
	"mediabot/pkg/models"
)

const (
	msgSendFailed     = "Failed to send the file."
	msgIngestForbid   = "You are not allowed to send media to this bot."
	msgIngestOK       = "File metadata stored."
	msgIngestFailed   = "Failed to store file metadata."
	msgNotAuthorized  = "You are not authorized to use this command."
	msgRequestFailed  = "Failed to process your request."
	msgBroadcastStart = "Broadcasting message..."
)

// Messenger is the subset of the Bot API the dispatcher uses.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]models.InlineKeyboardButton) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard [][]models.InlineKeyboardButton) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) error
}

// Service is the orchestrator surface the bot drives.
type Service interface {
	Search(ctx context.Context, caller search.Caller, text string, page int) search.Results
	ResolveCallback(ctx context.Context, caller search.Caller, data string) search.Reply
	Redeem(ctx context.Context, caller search.Caller, tok string) search.Reply
	TierStatus(ctx context.Context, userID int64) (tier.Status, error)
	GrantTier(ctx context.Context, userID int64, days int) (tier.Status, error)
	Ingest(ctx context.Context, caller search.Caller, doc search.Document) error
	Register(ctx context.Context, p search.Profile)
	Touch(ctx context.Context, userID int64)
	Stats(ctx context.Context) (search.Stats, error)
}

// Broadcaster sends a text to every user.
type Broadcaster interface {
	Run(ctx context.Context, text string, onProgress func(notify.Report)) (notify.Report, error)
}

type Bot struct {
	svc         Service
	tg          Messenger
	broadcaster Broadcaster
	isAdmin     func(int64) bool
	logger      *slog.Logger
	background  sync.WaitGroup
}

func New(svc Service, tg Messenger, broadcaster Broadcaster, isAdmin func(int64) bool, logger *slog.Logger) *Bot {
	return &Bot{
		svc:         svc,
		tg:          tg,
		broadcaster: broadcaster,
		isAdmin:     isAdmin,
		logger:      logger.With(slog.String("component", "bot")),
	}
}

// Wait blocks until background work started by commands has finished.
func (b *Bot) Wait() {
	b.background.Wait()
}

// HandleUpdate processes one update. Errors are logged, never returned: the
// webhook has already acknowledged the update.
func (b *Bot) HandleUpdate(ctx context.Context, u models.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	default:
		b.logger.Debug("Ignoring update", slog.Int64("update_id", u.UpdateID))
	}
}

func (b *Bot) caller(u *models.User) search.Caller {
	return search.Caller{ID: u.ID, Admin: b.isAdmin(u.ID)}
}

func (b *Bot) handleMessage(ctx context.Context, m *models.Message) {
	if m.From == nil || m.From.IsBot {
		return
	}
	b.svc.Touch(ctx, m.From.ID)
	if !m.IsPrivate() {
		return
	}
	caller := b.caller(m.From)

	if doc := m.Attachment(); doc != nil {
		b.ingest(ctx, caller, m, doc)
		return
	}

	text := strings.TrimSpace(m.Text)
	switch {
	case text == "":
		return
	case strings.HasPrefix(text, "/"):
		b.handleCommand(ctx, caller, m, text)
	default:
		res := b.svc.Search(ctx, caller, text, 1)
		b.deliver(ctx, m.Chat.ID, 0, res.Reply(search.ReplyMessage))
	}
}

func (b *Bot) ingest(ctx context.Context, caller search.Caller, m *models.Message, doc *models.Document) {
	if !caller.Admin {
		b.send(ctx, m.Chat.ID, msgIngestForbid)
		return
	}
	err := b.svc.Ingest(ctx, caller, search.Document{
		ID:            doc.FileUniqueID,
		FileReference: []byte(doc.FileID),
		MimeType:      doc.MimeType,
		Caption:       m.Caption,
		FileName:      doc.FileName,
	})
	if err != nil {
		b.send(ctx, m.Chat.ID, msgIngestFailed)
		return
	}
	b.send(ctx, m.Chat.ID, msgIngestOK)
}

func (b *Bot) handleCallback(ctx context.Context, q *models.CallbackQuery) {
	b.svc.Touch(ctx, q.From.ID)
	reply := b.svc.ResolveCallback(ctx, b.caller(&q.From), q.Data)

	// Every press must be answered or the client keeps spinning.
	notice := ""
	if reply.Kind == search.ReplyNotice {
		notice = reply.Text
	}
	if err := b.tg.AnswerCallbackQuery(ctx, q.ID, notice); err != nil {
		b.logger.Warn("Answer callback failed", slog.String("error", err.Error()))
	}
	if q.Message == nil {
		return
	}
	b.deliver(ctx, q.Message.Chat.ID, q.Message.MessageID, reply)
}

// deliver renders reply into chatID. messageID is the message an edit
// applies to.
func (b *Bot) deliver(ctx context.Context, chatID, messageID int64, reply search.Reply) {
	var err error
	switch reply.Kind {
	case search.ReplyNone, search.ReplyNotice:
		return
	case search.ReplyMessage:
		_, err = b.tg.SendMessage(ctx, chatID, reply.Text, keyboard(reply.Keyboard))
	case search.ReplyEdit:
		err = b.tg.EditMessageText(ctx, chatID, messageID, reply.Text, keyboard(reply.Keyboard))
	case search.ReplyDocument:
		fileID := ""
		if reply.Media != nil {
			fileID = string(reply.Media.FileReference)
		}
		if fileID == "" {
			b.send(ctx, chatID, msgSendFailed)
			return
		}
		if err = b.tg.SendDocument(ctx, chatID, fileID, reply.Text); err != nil {
			b.send(ctx, chatID, msgSendFailed)
		}
	}
	if err != nil {
		b.logger.Error("Deliver reply failed",
			slog.Int64("chat_id", chatID),
			slog.String("kind", reply.Kind.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if _, err := b.tg.SendMessage(ctx, chatID, text, nil); err != nil {
		b.logger.Error("Send message failed", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}

func keyboard(rows [][]search.Button) [][]models.InlineKeyboardButton {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]models.InlineKeyboardButton, len(rows))
	for i, row := range rows {
		out[i] = make([]models.InlineKeyboardButton, len(row))
		for j, btn := range row {
			out[i][j] = models.InlineKeyboardButton{Text: btn.Label, CallbackData: btn.Data, URL: btn.URL}
		}
	}
	return out
}
