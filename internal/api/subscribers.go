package api

import (
	"context"
	"net/http"
	"strconv"

	"mediabot/internal/search"
	"mediabot/internal/tier"

	"github.com/gin-gonic/gin"
)

// SubscriberService manages premium tiers and user statistics.
type SubscriberService interface {
	TierStatus(ctx context.Context, userID int64) (tier.Status, error)
	GrantTier(ctx context.Context, userID int64, days int) (tier.Status, error)
	Stats(ctx context.Context) (search.Stats, error)
}

type SubscriberHandler struct {
	svc SubscriberService
}

func NewSubscriberHandler(svc SubscriberService) *SubscriberHandler {
	return &SubscriberHandler{svc: svc}
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func (h *SubscriberHandler) GetStatus(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	st, err := h.svc.TierStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "status": st})
}

type GrantRequest struct {
	Days int `json:"days" binding:"required,min=1"`
}

// Grant sets the premium expiry to now+days, replacing any previous expiry.
func (h *SubscriberHandler) Grant(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := h.svc.GrantTier(c.Request.Context(), id, req.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "status": st})
}

func (h *SubscriberHandler) GetStats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
