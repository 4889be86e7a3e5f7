package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mediabot/internal/apperr"
	"mediabot/internal/models"
	"mediabot/internal/pagination"
)

// ReplyKind tells the transport how to deliver a Reply.
type ReplyKind int

const (
	// ReplyNone sends nothing.
	ReplyNone ReplyKind = iota
	// ReplyNotice answers the button press with a short toast.
	ReplyNotice
	// ReplyMessage sends a new message.
	ReplyMessage
	// ReplyEdit replaces the message that carried the pressed button.
	ReplyEdit
	// ReplyDocument pushes Media to the caller.
	ReplyDocument
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyNotice:
		return "notice"
	case ReplyMessage:
		return "message"
	case ReplyEdit:
		return "edit"
	case ReplyDocument:
		return "document"
	default:
		return "none"
	}
}

// Reply is the transport-neutral answer to one inbound event.
type Reply struct {
	Kind     ReplyKind
	Text     string
	Keyboard [][]Button
	Media    *models.Media
}

// Reply renders r as a message of the given kind.
func (r Results) Reply(kind ReplyKind) Reply {
	return Reply{Kind: kind, Text: r.Text, Keyboard: r.Keyboard}
}

// ResolveCallback handles a button payload pressed by caller.
func (o *Orchestrator) ResolveCallback(ctx context.Context, caller Caller, data string) Reply {
	p, err := pagination.Decode(data)
	if err != nil {
		callbacksTotal.WithLabelValues("malformed").Inc()
		o.logger.Debug("Malformed callback", slog.String("data", data), slog.String("error", err.Error()))
		return Reply{Kind: ReplyNotice, Text: msgInvalidPage}
	}

	switch v := p.(type) {
	case pagination.PageRequest:
		callbacksTotal.WithLabelValues("page").Inc()
		res, err := o.search(ctx, caller, splitKeyword(v.Keyword), v.Keyword, v.Page)
		if err != nil {
			return o.fail(caller, "page", err, msgFailed)
		}
		if len(res.Items) == 0 {
			return Reply{Kind: ReplyEdit, Text: msgNoMoreResults}
		}
		return res.Reply(ReplyEdit)

	case pagination.Ignore:
		callbacksTotal.WithLabelValues("ignore").Inc()
		return Reply{Kind: ReplyNone}

	case pagination.Send:
		callbacksTotal.WithLabelValues("send").Inc()
		return o.send(ctx, caller, v.FileID)

	case pagination.LegacyToken:
		callbacksTotal.WithLabelValues("legacy").Inc()
		link, err := o.MintToken(ctx, v.FileID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return Reply{Kind: ReplyMessage, Text: msgFileNotFound}
			}
			return o.fail(caller, "legacy token", err, msgLinkFailed)
		}
		return Reply{Kind: ReplyMessage, Text: fmt.Sprintf(msgLink, link.URL)}

	default:
		return Reply{Kind: ReplyNotice, Text: msgInvalidPage}
	}
}

// send delivers a media item directly. Only premium callers may do this.
func (o *Orchestrator) send(ctx context.Context, caller Caller, fileID string) Reply {
	level, err := o.tiers.Classify(ctx, caller.ID)
	if err != nil {
		o.logger.Warn("Tier lookup failed", slog.Int64("user_id", caller.ID), slog.String("error", err.Error()))
	}
	if !level.DirectDelivery() {
		return Reply{Kind: ReplyNotice, Text: msgPremiumOnly}
	}

	m, err := o.media.GetByID(ctx, fileID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Reply{Kind: ReplyMessage, Text: msgFileNotFound}
		}
		return o.fail(caller, "send", err, msgFailed)
	}
	return Reply{Kind: ReplyDocument, Text: deliveryCaption(m), Media: m}
}

// fail logs err and returns fallback as the user-facing message.
func (o *Orchestrator) fail(caller Caller, op string, err error, fallback string) Reply {
	level := slog.LevelError
	if apperr.Is(err, apperr.KindMalformed) || errors.Is(err, context.Canceled) {
		level = slog.LevelWarn
	}
	o.logger.Log(context.Background(), level, "Request failed",
		slog.String("op", op),
		slog.Int64("user_id", caller.ID),
		slog.String("kind", string(apperr.KindOf(err))),
		slog.String("error", err.Error()),
	)
	return Reply{Kind: ReplyMessage, Text: fallback}
}
