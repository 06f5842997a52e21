package registry

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/auth"
	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Handler handles HTTP requests for achievement operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers achievement registry routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	achievements := router.Group("/achievements")
	{
		achievements.POST("", h.issue)
		achievements.GET("/:id", h.get)
		achievements.DELETE("/:id", h.burn)
		achievements.POST("/:id/transfer", h.transfer)
		achievements.GET("/holder/:address", h.listByHolder)

		achievements.POST("/issuers", h.addIssuer)
		achievements.DELETE("/issuers/:address", h.removeIssuer)
	}
}

type issueBody struct {
	Holder      string `json:"holder" binding:"required"`
	TaskType    string `json:"task_type" binding:"required"`
	PointLevel  string `json:"point_level" binding:"required"`
	Title       string `json:"title"`
	MetadataRef string `json:"metadata_ref"`
}

func (h *Handler) issue(c *gin.Context) {
	var body issueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	holder, err := ledger.ParseAddress(body.Holder)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.service.Issue(c.Request.Context(), auth.CallerAddress(c), IssueRequest{
		Holder:      holder,
		TaskType:    TaskType(body.TaskType),
		PointLevel:  PointLevel(body.PointLevel),
		Title:       body.Title,
		MetadataRef: body.MetadataRef,
	})
	if err != nil {
		h.logger.Error("Failed to issue achievement", zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *Handler) get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid achievement id"})
		return
	}
	record, err := h.service.GetData(c.Request.Context(), id)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) burn(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid achievement id"})
		return
	}
	if err := h.service.Burn(c.Request.Context(), auth.CallerAddress(c), id); err != nil {
		h.logger.Error("Failed to burn achievement", zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"burned": id})
}

func (h *Handler) transfer(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid achievement id"})
		return
	}
	var body struct {
		To string `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to := ledger.Address(body.To)
	if !to.IsZero() {
		if to, err = ledger.ParseAddress(body.To); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := h.service.Transfer(c.Request.Context(), auth.CallerAddress(c), id, to); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transferred": id})
}

func (h *Handler) listByHolder(c *gin.Context) {
	holder, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := h.service.GetByHolder(c.Request.Context(), holder)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"holder": holder, "achievements": records})
}

func (h *Handler) addIssuer(c *gin.Context) {
	var body struct {
		Issuer string `json:"issuer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	issuer, err := ledger.ParseAddress(body.Issuer)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.AddIssuer(c.Request.Context(), auth.CallerAddress(c), issuer); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"issuer": issuer})
}

func (h *Handler) removeIssuer(c *gin.Context) {
	issuer, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.RemoveIssuer(c.Request.Context(), auth.CallerAddress(c), issuer); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": issuer})
}
