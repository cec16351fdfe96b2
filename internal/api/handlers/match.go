package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/johncarlocos/topx-betting-mern/internal/service"
	"github.com/johncarlocos/topx-betting-mern/pkg/logger"
)

type MatchHandler struct {
	listService  *service.MatchListService
	matchService *service.MatchService
}

func NewMatchHandler(listService *service.MatchListService, matchService *service.MatchService) *MatchHandler {
	return &MatchHandler{
		listService:  listService,
		matchService: matchService,
	}
}

// GetMatchData serves the public upcoming-match list.
func (h *MatchHandler) GetMatchData(c *gin.Context) {
	matches, err := h.listService.ListLiveMatches(c.Request.Context())
	if err != nil {
		logger.Error("Failed to fetch match list", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error fetching match data",
		})
		return
	}

	// the list is time-sensitive; keep intermediaries from serving 304s
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	c.JSON(http.StatusOK, matches)
}

// GetMatchResult serves one match's full metric set.
func (h *MatchHandler) GetMatchResult(c *gin.Context) {
	id := c.Param("id")

	result, err := h.matchService.GetMatchResult(c.Request.Context(), id)
	if err != nil {
		var rateErr *service.RateLimitError
		switch {
		case errors.Is(err, service.ErrFixtureNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Match not found",
				"id":    id,
			})
		case errors.As(err, &rateErr):
			retryAfter := int(math.Ceil(rateErr.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"retryAfter": retryAfter,
			})
		default:
			logger.Error("Failed to fetch match result", "id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Error fetching match result",
				"id":    id,
			})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
