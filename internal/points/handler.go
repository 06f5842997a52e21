package points

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/auth"
	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Handler handles HTTP requests for reputation point operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers point ledger routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	points := router.Group("/points")
	{
		points.GET("/:address", h.getPoints)
		points.POST("/batch", h.getBatchPoints)
		points.GET("/:address/eligibility", h.checkEligibility)
		points.POST("/:address/eligibility", h.checkEligibilityLogged)

		points.PUT("/config/registry", h.setRegistry)
		points.PUT("/config/thresholds", h.setThresholds)
		points.GET("/config/thresholds", h.thresholds)
	}
}

func (h *Handler) getPoints(c *gin.Context) {
	holder, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	total, err := h.service.GetPoints(c.Request.Context(), holder)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"holder": holder, "points": total})
}

func (h *Handler) getBatchPoints(c *gin.Context) {
	var body struct {
		Holders []string `json:"holders" binding:"required"`
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
	totals, err := h.service.GetBatchPoints(c.Request.Context(), holders)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": totals})
}

// checkEligibility is the read-only variant. It never writes an audit event
// and treats a missing or stale score as ineligible rather than an error.
func (h *Handler) checkEligibility(c *gin.Context) {
	holder, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.CheckEligibility(c.Request.Context(), holder)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// checkEligibilityLogged is the audited variant used by downstream consumers.
func (h *Handler) checkEligibilityLogged(c *gin.Context) {
	holder, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.CheckEligibilityLogged(c.Request.Context(), holder)
	if err != nil {
		h.logger.Warn("Eligibility check failed", zap.String("holder", holder.String()), zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) setRegistry(c *gin.Context) {
	var body struct {
		Registry string `json:"registry" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	registry, err := ledger.ParseAddress(body.Registry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetRegistry(c.Request.Context(), auth.CallerAddress(c), registry); err != nil {
		h.logger.Error("Failed to bind registry", zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registry": registry})
}

func (h *Handler) setThresholds(c *gin.Context) {
	var body struct {
		MinPoints int64 `json:"min_points"`
		MinScore  int64 `json:"min_score"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetThresholds(c.Request.Context(), auth.CallerAddress(c), body.MinPoints, body.MinScore); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"min_points": body.MinPoints, "min_score": body.MinScore})
}

func (h *Handler) thresholds(c *gin.Context) {
	minPoints, minScore, err := h.service.Thresholds(c.Request.Context())
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"min_points": minPoints, "min_score": minScore})
}
