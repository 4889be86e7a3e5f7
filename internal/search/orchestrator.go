// Package search runs one request/response cycle of the bot: it turns query
// text or a button payload into a reply, choosing page size and delivery path
// by the caller's tier. It is the single place where internal failures become
// user-facing messages.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mediabot/internal/apperr"
	"mediabot/internal/clock"
	"mediabot/internal/index"
	"mediabot/internal/keyword"
	"mediabot/internal/models"
	"mediabot/internal/pagination"
	"mediabot/internal/tier"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

const (
	msgNoResults     = "No matching media found."
	msgNoMoreResults = "No more results."
	msgFailed        = "Failed to process your request."
	msgInvalidPage   = "Invalid page data."
	msgPremiumOnly   = "Direct delivery is available to premium users only. Send /premium to check your status."
	msgFileNotFound  = "File not found in the database."
	msgLinkFailed    = "Failed to generate download link."
	msgLink          = "Click this link to download your file: %s"
)

// Number of exchange tokens minted in parallel for one results page.
const mintConcurrency = 4

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_searches_total",
		Help: "Searches served, by tier and outcome.",
	}, []string{"tier", "outcome"})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mediabot_search_duration_seconds",
		Help:    "Time to assemble one results page.",
		Buckets: prometheus.DefBuckets,
	})
	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_callbacks_total",
		Help: "Button payloads handled, by kind.",
	}, []string{"kind"})
)

// MediaStore is the searchable media index.
type MediaStore interface {
	Search(ctx context.Context, q index.Query, limit, offset int) ([]index.Summary, error)
	Count(ctx context.Context, q index.Query) (int, error)
	GetByID(ctx context.Context, id string) (*models.Media, error)
	Upsert(ctx context.Context, m *models.Media) error
}

// UserStore tracks activity independently of tier.
type UserStore interface {
	Upsert(ctx context.Context, u models.User) error
	Touch(ctx context.Context, userID int64, at time.Time) error
	Count(ctx context.Context) (int, error)
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
}

// TierResolver classifies callers and manages premium expiries.
type TierResolver interface {
	Classify(ctx context.Context, userID int64) (tier.Tier, error)
	Status(ctx context.Context, userID int64) (tier.Status, error)
	GrantOrRenew(ctx context.Context, userID int64, days int) (time.Time, error)
}

// TokenBroker mints and resolves exchange tokens.
type TokenBroker interface {
	Mint(ctx context.Context, fileID string) (string, error)
	Resolve(ctx context.Context, tok string) (string, error)
}

// Caller identifies who a request is made for.
type Caller struct {
	ID    int64
	Admin bool
}

// Options configures an Orchestrator.
type Options struct {
	// SiteURL is the web front-end that redeems exchange tokens.
	SiteURL string
	// VideoExtensions is the allow-list of file name suffixes shown in results.
	VideoExtensions []string
}

type Orchestrator struct {
	media  MediaStore
	users  UserStore
	tiers  TierResolver
	tokens TokenBroker
	clock  clock.Clock
	opts   Options
	logger *slog.Logger
}

func New(media MediaStore, users UserStore, tiers TierResolver, tokens TokenBroker, clk clock.Clock, opts Options, logger *slog.Logger) *Orchestrator {
	exts := make([]string, len(opts.VideoExtensions))
	for i, e := range opts.VideoExtensions {
		exts[i] = strings.ToLower(e)
	}
	opts.VideoExtensions = exts
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")

	return &Orchestrator{
		media:  media,
		users:  users,
		tiers:  tiers,
		tokens: tokens,
		clock:  clk,
		opts:   opts,
		logger: logger.With(slog.String("component", "search_orchestrator")),
	}
}

// Item is one visible search result. Exactly one of Data and URL is set:
// premium callers get a send payload, standard callers an exchange link.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Button is an inline button: a callback payload or a URL.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Results is one rendered results page. When nothing can be shown, Items is
// empty and Text holds the message for the user.
type Results struct {
	Text       string     `json:"text"`
	Query      string     `json:"query"`
	Keyword    string     `json:"keyword"`
	Tier       string     `json:"tier"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
	Items      []Item     `json:"items"`
	Keyboard   [][]Button `json:"keyboard,omitempty"`
}

// Search runs a text query for caller and renders the requested page.
func (o *Orchestrator) Search(ctx context.Context, caller Caller, text string, page int) Results {
	display := strings.TrimSpace(text)
	res, err := o.search(ctx, caller, keyword.Normalize(text), display, page)
	if err != nil {
		o.logger.Error("Search failed",
			slog.Int64("user_id", caller.ID),
			slog.String("query", display),
			slog.String("error", err.Error()),
		)
		return Results{Text: msgFailed, Query: display, Page: page, Items: []Item{}}
	}
	return res
}

func (o *Orchestrator) search(ctx context.Context, caller Caller, tokens []string, display string, page int) (Results, error) {
	start := time.Now()
	if page < 1 {
		page = 1
	}
	res := Results{Query: display, Keyword: keyword.Join(tokens), Page: page, Items: []Item{}}

	q := index.Build(tokens)
	if q.Empty() {
		res.Text = msgNoResults
		res.Tier = tier.Standard.String()
		return res, nil
	}

	var level tier.Tier
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := o.tiers.Classify(gctx, caller.ID)
		if err != nil {
			// Standard is the safe default when the subscriber store is down.
			o.logger.Warn("Tier lookup failed", slog.Int64("user_id", caller.ID), slog.String("error", err.Error()))
		}
		level = t
		return nil
	})
	g.Go(func() error {
		n, err := o.media.Count(gctx, q)
		res.Total = n
		return err
	})
	if err := g.Wait(); err != nil {
		searchesTotal.WithLabelValues(level.String(), "error").Inc()
		return res, err
	}

	res.Tier = level.String()
	res.PageSize = level.PageSize()
	res.TotalPages = pagination.TotalPages(res.Total, res.PageSize)
	switch {
	case res.Total == 0:
		res.Text = msgNoResults
		searchesTotal.WithLabelValues(level.String(), "empty").Inc()
		return res, nil
	case page > res.TotalPages:
		res.Text = msgNoMoreResults
		searchesTotal.WithLabelValues(level.String(), "past_end").Inc()
		return res, nil
	}

	rows, err := o.media.Search(ctx, q, res.PageSize, (page-1)*res.PageSize)
	if err != nil {
		searchesTotal.WithLabelValues(level.String(), "error").Inc()
		return res, err
	}

	// Filtering after limit/offset may leave a page short of PageSize.
	visible := o.filterVideos(rows)
	if len(visible) == 0 {
		res.Text = msgNoResults
		searchesTotal.WithLabelValues(level.String(), "empty").Inc()
		return res, nil
	}

	if res.Items, err = o.items(ctx, level, visible); err != nil {
		searchesTotal.WithLabelValues(level.String(), "error").Inc()
		return res, err
	}

	nav, err := pagination.Keyboard(res.Keyword, pagination.NewWindow(page, res.TotalPages))
	if err != nil {
		return res, apperr.Wrap(apperr.KindInternal, "build pagination", err)
	}
	for _, it := range res.Items {
		res.Keyboard = append(res.Keyboard, []Button{{Label: it.Name, Data: it.Data, URL: it.URL}})
	}
	for _, row := range nav {
		buttons := make([]Button, len(row))
		for i, b := range row {
			buttons[i] = Button{Label: b.Label, Data: b.Data}
		}
		res.Keyboard = append(res.Keyboard, buttons)
	}

	res.Text = fmt.Sprintf("%d Results for '%s'", res.Total, display)
	searchesTotal.WithLabelValues(level.String(), "ok").Inc()
	searchDuration.Observe(time.Since(start).Seconds())
	return res, nil
}

func (o *Orchestrator) filterVideos(rows []index.Summary) []index.Summary {
	var out []index.Summary
	for _, r := range rows {
		name := strings.ToLower(r.FileName)
		for _, ext := range o.opts.VideoExtensions {
			if strings.HasSuffix(name, ext) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// items renders the delivery control of every visible row, minting tokens
// for standard callers.
func (o *Orchestrator) items(ctx context.Context, level tier.Tier, rows []index.Summary) ([]Item, error) {
	items := make([]Item, len(rows))
	for i, r := range rows {
		items[i] = Item{ID: r.ID, Name: displayName(r)}
	}

	if level.DirectDelivery() {
		for i := range items {
			data, err := pagination.Encode(pagination.Send{FileID: items[i].ID})
			if err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "encode send payload", err)
			}
			items[i].Data = data
		}
		return items, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mintConcurrency)
	for i := range items {
		i := i
		g.Go(func() error {
			tok, err := o.tokens.Mint(gctx, items[i].ID)
			if err != nil {
				return err
			}
			items[i].URL = o.link(tok, items[i].Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func displayName(s index.Summary) string {
	return models.Media{FileName: s.FileName, Caption: s.Caption}.DisplayName()
}
