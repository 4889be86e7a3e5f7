package search

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/url"
	"strings"

	"mediabot/internal/apperr"
	"mediabot/internal/keyword"
	"mediabot/internal/models"
)

const (
	msgWelcome      = "Send the name of the movie you want."
	msgInvalidToken = "Invalid token."
	msgBadToken     = "Failed to decode the token. Please try again."
)

// Link is an exchange token for one media item and the web link redeeming it.
type Link struct {
	FileID string `json:"file_id"`
	Token  string `json:"token"`
	URL    string `json:"url"`
}

// MintToken returns the exchange link for fileID, minting the token on first
// use. Unknown file ids are reported as apperr.KindNotFound.
func (o *Orchestrator) MintToken(ctx context.Context, fileID string) (Link, error) {
	m, err := o.media.GetByID(ctx, fileID)
	if err != nil {
		return Link{}, err
	}
	tok, err := o.tokens.Mint(ctx, m.ID)
	if err != nil {
		return Link{}, err
	}
	return Link{FileID: m.ID, Token: tok, URL: o.link(tok, m.DisplayName())}, nil
}

// ResolveToken returns the media item tok refers to.
func (o *Orchestrator) ResolveToken(ctx context.Context, tok string) (*models.Media, error) {
	fileID, err := o.tokens.Resolve(ctx, tok)
	if err != nil {
		return nil, err
	}
	return o.media.GetByID(ctx, fileID)
}

// Redeem handles the deep link "/start <token>" the web front-end sends users
// back with. Any caller holding a valid token receives the media directly.
func (o *Orchestrator) Redeem(ctx context.Context, caller Caller, tok string) Reply {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Reply{Kind: ReplyMessage, Text: msgWelcome}
	}
	if _, err := base64.URLEncoding.DecodeString(tok); err != nil {
		o.logger.Debug("Undecodable token", slog.Int64("user_id", caller.ID), slog.String("error", err.Error()))
		return Reply{Kind: ReplyMessage, Text: msgBadToken}
	}

	fileID, err := o.tokens.Resolve(ctx, tok)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Reply{Kind: ReplyMessage, Text: msgInvalidToken}
		}
		return o.fail(caller, "redeem", err, msgFailed)
	}
	m, err := o.media.GetByID(ctx, fileID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Reply{Kind: ReplyMessage, Text: msgFileNotFound}
		}
		return o.fail(caller, "redeem", err, msgFailed)
	}

	o.logger.Info("Token redeemed", slog.Int64("user_id", caller.ID), slog.String("file_id", m.ID))
	return Reply{Kind: ReplyDocument, Text: deliveryCaption(m), Media: m}
}

// link builds <SITE_URL>/?token=<t>&videoName=<name>, percent-encoding both
// values with spaces as %20.
func (o *Orchestrator) link(tok, name string) string {
	return o.opts.SiteURL + "/?token=" + escape(tok) + "&videoName=" + escape(name)
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// deliveryCaption is the caption sent along with a delivered file.
func deliveryCaption(m *models.Media) string {
	name := m.DisplayName()
	return strings.ReplaceAll(strings.ReplaceAll(name, " ", "."), "@", "")
}

// splitKeyword turns a payload keyword back into search tokens.
func splitKeyword(kw string) []string {
	return keyword.Normalize(kw)
}
