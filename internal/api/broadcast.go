package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"mediabot/internal/notify"

	"github.com/gin-gonic/gin"
)

// Broadcaster sends a text to every user.
type Broadcaster interface {
	Run(ctx context.Context, text string, onProgress func(notify.Report)) (notify.Report, error)
	Running() bool
}

type BroadcastHandler struct {
	broadcaster Broadcaster
	feed        http.HandlerFunc
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// NewBroadcastHandler wires the broadcaster; feed serves the websocket
// progress stream.
func NewBroadcastHandler(broadcaster Broadcaster, feed http.HandlerFunc, logger *slog.Logger) *BroadcastHandler {
	return &BroadcastHandler{
		broadcaster: broadcaster,
		feed:        feed,
		logger:      logger.With(slog.String("component", "broadcast_api")),
	}
}

type BroadcastRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendBroadcast starts a broadcast in the background. Progress is streamed
// on /api/ws.
func (h *BroadcastHandler) SendBroadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.broadcaster.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": notify.ErrRunning.Message})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if _, err := h.broadcaster.Run(ctx, req.Text, nil); err != nil {
			h.logger.Error("Broadcast failed", slog.String("error", err.Error()))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "Broadcast started"})
}

// Feed upgrades to the websocket progress stream.
func (h *BroadcastHandler) Feed(c *gin.Context) {
	h.feed(c.Writer, c.Request)
}

// Wait blocks until background broadcasts have finished.
func (h *BroadcastHandler) Wait() {
	h.wg.Wait()
}
