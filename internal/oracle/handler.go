package oracle

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/auth"
	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Handler handles HTTP requests for score oracle operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers oracle routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	scores := router.Group("/scores")
	{
		scores.POST("", h.publish)
		scores.GET("/:address", h.latestView)
		scores.POST("/:address/read", h.latestAudited)
		scores.POST("/batch", h.batch)
		scores.GET("/:address/history", h.history)

		scores.PUT("/config/max-age", h.setMaxAge)
		scores.PUT("/config/publish-interval", h.setPublishInterval)
		scores.PUT("/config/paused", h.setPaused)
		scores.PUT("/config/history", h.setHistoryEnabled)
	}
}

func scoreTypeParam(c *gin.Context) ledger.ScoreType {
	raw := c.Query("score_type")
	if raw == "" {
		return ledger.ScoreFinancialRisk
	}
	return ledger.ScoreType(raw)
}

func (h *Handler) publish(c *gin.Context) {
	var body struct {
		ScoreType string `json:"score_type" binding:"required"`
		Value     *int64 `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	caller := auth.CallerAddress(c)
	if err := h.service.Publish(c.Request.Context(), caller, ledger.ScoreType(body.ScoreType), *body.Value); err != nil {
		h.logger.Warn("Score publish rejected", zap.String("holder", caller.String()), zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"holder": caller, "value": *body.Value})
}

// latestView is the side-effect-free read: value, validity, and age.
func (h *Handler) latestView(c *gin.Context) {
	holder, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value, valid, age, err := h.service.LatestScoreView(c.Request.Context(), holder, scoreTypeParam(c))
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"holder":   holder,
		"value":    value,
		"valid":    valid,
		"age_secs": int64(age / time.Second),
	})
}

// latestAudited is the consuming read: it records a query event and rejects
// stale scores.
func (h *Handler) latestAudited(c *gin.Context) {
	holder, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value, err := h.service.LatestScore(c.Request.Context(), auth.CallerAddress(c), holder, scoreTypeParam(c))
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"holder": holder, "value": value})
}

func (h *Handler) batch(c *gin.Context) {
	var body struct {
		Holders   []string `json:"holders" binding:"required"`
		ScoreType string   `json:"score_type"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	holders := make([]ledger.Address, 0, len(body.Holders))
	for _, raw := range body.Holders {
		addr, err := ledger.ParseAddress(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		holders = append(holders, addr)
	}
	scoreType := ledger.ScoreType(body.ScoreType)
	if body.ScoreType == "" {
		scoreType = ledger.ScoreFinancialRisk
	}
	entries, err := h.service.BatchScores(c.Request.Context(), holders, scoreType)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scores": entries})
}

func (h *Handler) history(c *gin.Context) {
	holder, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entries, err := h.service.History(c.Request.Context(), holder, scoreTypeParam(c))
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"holder": holder, "history": entries})
}

func (h *Handler) setMaxAge(c *gin.Context) {
	var body struct {
		MaxAgeSecs int64 `json:"max_age_secs" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.service.SetMaxScoreAge(c.Request.Context(), auth.CallerAddress(c), time.Duration(body.MaxAgeSecs)*time.Second)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"max_age_secs": body.MaxAgeSecs})
}

func (h *Handler) setPublishInterval(c *gin.Context) {
	var body struct {
		IntervalSecs int64 `json:"interval_secs" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.service.SetMinPublishInterval(c.Request.Context(), auth.CallerAddress(c), time.Duration(body.IntervalSecs)*time.Second)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"interval_secs": body.IntervalSecs})
}

func (h *Handler) setPaused(c *gin.Context) {
	var body struct {
		Paused *bool `json:"paused" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetPublishingPaused(c.Request.Context(), auth.CallerAddress(c), *body.Paused); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": *body.Paused})
}

func (h *Handler) setHistoryEnabled(c *gin.Context) {
	var body struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetHistoryEnabled(c.Request.Context(), auth.CallerAddress(c), *body.Enabled); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history_enabled": *body.Enabled})
}
