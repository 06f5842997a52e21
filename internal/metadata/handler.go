package metadata

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/auth"
	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Handler handles HTTP requests for achievement evidence
type Handler struct {
	store  *Store
	logger *zap.Logger
}

func NewHandler(store *Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes registers evidence routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	evidence := router.Group("/evidence")
	{
		evidence.POST("", h.create)
		evidence.GET("/:ref", h.get)
		evidence.POST("/:ref/attachments", h.attach)
		evidence.GET("/holder/:address", h.listByHolder)
	}
}

func (h *Handler) create(c *gin.Context) {
	var body struct {
		Holder      string                 `json:"holder" binding:"required"`
		TaskType    string                 `json:"task_type" binding:"required"`
		Description string                 `json:"description"`
		Details     map[string]interface{} `json:"details"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	holder, err := ledger.ParseAddress(body.Holder)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ref, err := h.store.Put(c.Request.Context(), &Evidence{
		Holder:      holder.String(),
		Issuer:      auth.CallerAddress(c).String(),
		TaskType:    body.TaskType,
		Description: body.Description,
		Details:     body.Details,
		Attachments: []Attachment{},
	})
	if err != nil {
		h.logger.Error("Failed to store evidence", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ref": ref})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.store.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) attach(c *gin.Context) {
	var body struct {
		Name        string `json:"name" binding:"required"`
		ContentType string `json:"content_type"`
		URL         string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.store.Attach(c.Request.Context(), c.Param("ref"), Attachment{
		Name:        body.Name,
		ContentType: body.ContentType,
		URL:         body.URL,
	})
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attached": body.Name})
}

func (h *Handler) listByHolder(c *gin.Context) {
	holder, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	docs, err := h.store.ListByHolder(c.Request.Context(), holder)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"holder": holder, "evidence": docs})
}
