package benefits

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/auth"
	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Handler handles HTTP requests for benefit program operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers benefit program routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	programs := router.Group("/programs")
	{
		programs.POST("", h.createProgram)
		programs.GET("", h.listPrograms)
		programs.GET("/:id", h.getProgram)
		programs.POST("/:id/fund", h.fundProgram)
		programs.PUT("/:id/active", h.setActive)
		programs.POST("/:id/apply", h.apply)
		programs.GET("/:id/applications", h.listApplications)
	}
	applications := router.Group("/applications")
	{
		applications.POST("/:id/approve", h.approve)
		applications.POST("/:id/reject", h.reject)
		applications.POST("/:id/disburse", h.disburse)
		applications.POST("/:id/complete", h.complete)
	}
}

func (h *Handler) createProgram(c *gin.Context) {
	var body struct {
		Name          string `json:"name" binding:"required"`
		Description   string `json:"description"`
		MinPoints     int64  `json:"min_points"`
		MinScore      int64  `json:"min_score"`
		BenefitAmount int64  `json:"benefit_amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	program, err := h.service.CreateProgram(c.Request.Context(), auth.CallerAddress(c), CreateProgramRequest{
		Name:          body.Name,
		Description:   body.Description,
		MinPoints:     body.MinPoints,
		MinScore:      body.MinScore,
		BenefitAmount: body.BenefitAmount,
	})
	if err != nil {
		h.logger.Error("Failed to create program", zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, program)
}

func (h *Handler) listPrograms(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	programs, err := h.service.ListPrograms(c.Request.Context(), activeOnly)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"programs": programs})
}

func (h *Handler) getProgram(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid program id"})
		return
	}
	program, err := h.service.GetProgram(c.Request.Context(), id)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, program)
}

func (h *Handler) fundProgram(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid program id"})
		return
	}
	var body struct {
		Amount int64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.FundProgram(c.Request.Context(), auth.CallerAddress(c), id, body.Amount); err != nil {
		h.logger.Error("Failed to fund program", zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"program_id": id, "amount": body.Amount})
}

func (h *Handler) setActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid program id"})
		return
	}
	var body struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetProgramActive(c.Request.Context(), auth.CallerAddress(c), id, *body.Active); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"program_id": id, "active": *body.Active})
}

func (h *Handler) apply(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid program id"})
		return
	}
	caller := auth.CallerAddress(c)
	app, err := h.service.Apply(c.Request.Context(), caller, id)
	if err != nil {
		h.logger.Warn("Benefit application rejected",
			zap.String("applicant", caller.String()),
			zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *Handler) listApplications(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid program id"})
		return
	}
	apps, err := h.service.ListApplications(c.Request.Context(), id)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *Handler) approve(c *gin.Context) { h.decide(c, true) }
func (h *Handler) reject(c *gin.Context)  { h.decide(c, false) }

func (h *Handler) decide(c *gin.Context, approve bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application id"})
		return
	}
	if err := h.service.Decide(c.Request.Context(), auth.CallerAddress(c), id, approve); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"application_id": id, "approved": approve})
}

func (h *Handler) disburse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application id"})
		return
	}
	if err := h.service.Disburse(c.Request.Context(), auth.CallerAddress(c), id); err != nil {
		h.logger.Error("Benefit disbursement failed", zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"disbursed": id})
}

func (h *Handler) complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application id"})
		return
	}
	if err := h.service.Complete(c.Request.Context(), auth.CallerAddress(c), id); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": id})
}
