package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"mediabot/internal/notify"
	"mediabot/internal/search"
	"mediabot/pkg/models"
)

const (
	usageGrant     = "Usage: /grant <user id> <days>"
	usageBroadcast = "Usage: /broadcast <message>\n\nThe message is not sent to admins."
	timeLayout     = "2006-01-02 15:04 MST"
)

// parseCommand splits "/cmd@botname arg1 arg2" into "cmd" and its args.
func parseCommand(text string) (string, []string, string) {
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	rest := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))
	return strings.ToLower(name), fields[1:], rest
}

func (b *Bot) handleCommand(ctx context.Context, caller search.Caller, m *models.Message, text string) {
	name, args, rest := parseCommand(text)
	chatID := m.Chat.ID

	switch name {
	case "start":
		b.svc.Register(ctx, search.Profile{
			ID:        m.From.ID,
			Username:  m.From.Username,
			FirstName: m.From.FirstName,
			LastName:  m.From.LastName,
		})
		tok := ""
		if len(args) > 0 {
			tok = args[0]
		}
		b.deliver(ctx, chatID, 0, b.svc.Redeem(ctx, caller, tok))

	case "premium":
		b.send(ctx, chatID, b.premiumText(ctx, caller.ID))

	case "grant":
		if !caller.Admin {
			b.send(ctx, chatID, msgNotAuthorized)
			return
		}
		b.send(ctx, chatID, b.grantText(ctx, args))

	case "stats":
		if !caller.Admin {
			b.send(ctx, chatID, msgNotAuthorized)
			return
		}
		st, err := b.svc.Stats(ctx)
		if err != nil {
			b.logger.Error("Stats failed", slog.String("error", err.Error()))
			b.send(ctx, chatID, msgRequestFailed)
			return
		}
		b.send(ctx, chatID, statsText(st))

	case "broadcast":
		if !caller.Admin {
			b.send(ctx, chatID, msgNotAuthorized)
			return
		}
		if rest == "" {
			b.send(ctx, chatID, usageBroadcast)
			return
		}
		b.startBroadcast(ctx, chatID, rest)

	default:
		b.logger.Debug("Ignoring command", slog.String("command", name))
	}
}

func (b *Bot) premiumText(ctx context.Context, userID int64) string {
	st, err := b.svc.TierStatus(ctx, userID)
	if err != nil {
		return msgRequestFailed
	}
	if !st.IsActive {
		return "You do not have an active premium subscription."
	}
	return fmt.Sprintf("Premium: active\nExpires: %s\nDays left: %d", st.Expiry.UTC().Format(timeLayout), st.DaysLeft)
}

func (b *Bot) grantText(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return usageGrant
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usageGrant
	}
	days, err := strconv.Atoi(args[1])
	if err != nil || days <= 0 {
		return usageGrant
	}

	st, err := b.svc.GrantTier(ctx, userID, days)
	if err != nil {
		return "Failed to grant premium."
	}
	return fmt.Sprintf("Premium granted to %d until %s.", userID, st.Expiry.UTC().Format(timeLayout))
}

func statsText(st search.Stats) string {
	return fmt.Sprintf("Bot Statistics\n\nTotal Users: %d\nActive Users (24h): %d\nBot Status: Online\nLast Updated: %s\n\nAdmin Commands:\n/broadcast - Send message to all users\n/grant - Grant or renew premium\n/stats - Show these statistics",
		st.TotalUsers, st.ActiveUsers, st.GeneratedAt.UTC().Format("2006-01-02 15:04:05"))
}

// startBroadcast runs the broadcast in the background so the update handler
// can return. Progress is shown by editing one status message.
func (b *Bot) startBroadcast(ctx context.Context, chatID int64, text string) {
	statusID, err := b.tg.SendMessage(ctx, chatID, msgBroadcastStart, nil)
	if err != nil {
		b.logger.Error("Send broadcast status failed", slog.String("error", err.Error()))
		return
	}

	// The broadcast outlives the update's deadline.
	bg := context.WithoutCancel(ctx)
	b.background.Add(1)
	go func() {
		defer b.background.Done()
		edit := func(text string) {
			editCtx, cancel := context.WithTimeout(bg, 10*time.Second)
			defer cancel()
			if err := b.tg.EditMessageText(editCtx, chatID, statusID, text, nil); err != nil {
				b.logger.Warn("Edit broadcast status failed", slog.String("error", err.Error()))
			}
		}

		report, err := b.broadcaster.Run(bg, text, func(r notify.Report) {
			if r.FinishedAt.IsZero() {
				edit(r.ProgressText())
			}
		})
		if errors.Is(err, notify.ErrRunning) {
			edit("A broadcast is already running.")
			return
		}
		if err != nil {
			b.logger.Error("Broadcast failed", slog.String("error", err.Error()))
			if report.Reach() == 0 {
				edit(msgRequestFailed)
				return
			}
		}
		edit(report.Summary())
	}()
}
