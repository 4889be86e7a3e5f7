package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"mediabot/internal/models"
	"mediabot/internal/pagination"
	"mediabot/internal/search"

	"github.com/gin-gonic/gin"
)

// SearchService is the orchestrator surface behind the search and token
// routes.
type SearchService interface {
	Search(ctx context.Context, caller search.Caller, text string, page int) search.Results
	MintToken(ctx context.Context, fileID string) (search.Link, error)
	ResolveToken(ctx context.Context, tok string) (*models.Media, error)
}

type SearchHandler struct {
	svc     SearchService
	isAdmin func(int64) bool
}

func NewSearchHandler(svc SearchService, isAdmin func(int64) bool) *SearchHandler {
	return &SearchHandler{svc: svc, isAdmin: isAdmin}
}

// Search renders a results page exactly as the given user would see it.
// GET /api/search?q=&page=&user=
func (h *SearchHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || !pagination.ValidPage(page) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("page must be between 1 and %d", pagination.MaxPage)})
		return
	}
	userID, err := strconv.ParseInt(c.DefaultQuery("user", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user must be an integer"})
		return
	}

	caller := search.Caller{ID: userID, Admin: h.isAdmin(userID)}
	c.JSON(http.StatusOK, h.svc.Search(c.Request.Context(), caller, q, page))
}

type MintTokenRequest struct {
	FileID string `json:"file_id" binding:"required"`
}

// MintToken returns the exchange link for a file, minting it on first use.
func (h *SearchHandler) MintToken(c *gin.Context) {
	var req MintTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := h.svc.MintToken(c.Request.Context(), req.FileID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// ResolveToken returns the media a token refers to.
func (h *SearchHandler) ResolveToken(c *gin.Context) {
	m, err := h.svc.ResolveToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
