package webhook

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mediabot/pkg/models"

	"github.com/gin-gonic/gin"
)

// SecretHeader carries the secret registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler processes one update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u models.Update)
}

type Handler struct {
	secret  string
	timeout time.Duration
	updates UpdateHandler
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewHandler(secret string, timeout time.Duration, updates UpdateHandler, logger *slog.Logger) *Handler {
	return &Handler{
		secret:  secret,
		timeout: timeout,
		updates: updates,
		logger:  logger.With(slog.String("component", "webhook")),
	}
}

// HandleUpdate acknowledges the update at once and processes it on its own
// goroutine with its own deadline, so a slow update never delays Telegram's
// delivery of the next one.
func (h *Handler) HandleUpdate(c *gin.Context) {
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(SecretHeader)), []byte(h.secret)) != 1 {
		h.logger.Warn("Webhook secret mismatch", slog.String("remote", c.ClientIP()))
		c.Status(http.StatusUnauthorized)
		return
	}

	var update models.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn("Error binding update", slog.String("error", err.Error()))
		c.Status(http.StatusBadRequest)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("Update handler panicked", slog.Int64("update_id", update.UpdateID), slog.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		h.updates.HandleUpdate(ctx, update)
	}()

	c.Status(http.StatusOK)
}

// Wait blocks until every in-flight update has been processed.
func (h *Handler) Wait() {
	h.wg.Wait()
}
