package lending

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/auth"
	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Handler handles HTTP requests for loan operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers loan manager routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	loans := router.Group("/loans")
	{
		loans.POST("", h.apply)
		loans.GET("", h.list)
		loans.GET("/pool", h.pool)
		loans.POST("/simulate", h.simulate)
		loans.GET("/:address", h.get)
		loans.POST("/:address/approve", h.approve)
		loans.POST("/:address/reject", h.reject)
		loans.POST("/repay", h.repay)
		loans.POST("/cancel", h.cancel)
		loans.POST("/withdraw", h.withdraw)

		loans.PUT("/config/paused", h.setPaused)
		loans.PUT("/config/admin", h.setAdmin)
		loans.PUT("/config/limits", h.setLimits)
		loans.PUT("/config/eligibility", h.setEligibility)
	}
}

func (h *Handler) apply(c *gin.Context) {
	var body struct {
		Principal int64 `json:"principal" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	caller := auth.CallerAddress(c)
	loan, err := h.service.ApplyForLoan(c.Request.Context(), caller, body.Principal)
	if err != nil {
		h.logger.Warn("Loan application rejected",
			zap.String("borrower", caller.String()),
			zap.Int64("principal", body.Principal),
			zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *Handler) get(c *gin.Context) {
	borrower, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loan, err := h.service.GetLoan(c.Request.Context(), borrower)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *Handler) list(c *gin.Context) {
	loans, err := h.service.ListLoans(c.Request.Context())
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": loans})
}

func (h *Handler) pool(c *gin.Context) {
	balance, err := h.service.PoolBalance(c.Request.Context())
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pool_balance": balance})
}

func (h *Handler) simulate(c *gin.Context) {
	var body struct {
		Principal    int64 `json:"principal" binding:"required"`
		DurationDays int64 `json:"duration_days" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quote, err := h.service.SimulateLoan(c.Request.Context(), body.Principal, body.DurationDays)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) approve(c *gin.Context) {
	borrower, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var body struct {
		DurationDays int64 `json:"duration_days" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	caller := auth.CallerAddress(c)
	if err := h.service.ApproveAndDisburse(c.Request.Context(), caller, borrower, body.DurationDays); err != nil {
		h.logger.Error("Loan approval failed",
			zap.String("borrower", borrower.String()),
			zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"borrower": borrower, "duration_days": body.DurationDays})
}

func (h *Handler) reject(c *gin.Context) {
	borrower, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.RejectLoanApplication(c.Request.Context(), auth.CallerAddress(c), borrower); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": borrower})
}

func (h *Handler) repay(c *gin.Context) {
	caller := auth.CallerAddress(c)
	if err := h.service.RepayLoan(c.Request.Context(), caller); err != nil {
		h.logger.Warn("Loan repayment failed",
			zap.String("borrower", caller.String()),
			zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"repaid": caller})
}

func (h *Handler) cancel(c *gin.Context) {
	caller := auth.CallerAddress(c)
	if err := h.service.CancelLoanApplication(c.Request.Context(), caller); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": caller})
}

func (h *Handler) withdraw(c *gin.Context) {
	var body struct {
		To     string `json:"to" binding:"required"`
		Amount int64  `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := ledger.ParseAddress(body.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Withdraw(c.Request.Context(), auth.CallerAddress(c), to, body.Amount); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"to": to, "amount": body.Amount})
}

func (h *Handler) setPaused(c *gin.Context) {
	var body struct {
		Paused *bool `json:"paused" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetPaused(c.Request.Context(), auth.CallerAddress(c), *body.Paused); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": *body.Paused})
}

func (h *Handler) setAdmin(c *gin.Context) {
	var body struct {
		Admin string `json:"admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	admin, err := ledger.ParseAddress(body.Admin)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetAdmin(c.Request.Context(), auth.CallerAddress(c), admin); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": admin})
}

func (h *Handler) setLimits(c *gin.Context) {
	var body struct {
		MinLoan            int64 `json:"min_loan" binding:"required"`
		LargeLoanThreshold int64 `json:"large_loan_threshold" binding:"required"`
		MaxLoan            int64 `json:"max_loan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.service.SetLoanLimits(c.Request.Context(), auth.CallerAddress(c), body.MinLoan, body.LargeLoanThreshold, body.MaxLoan)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"min_loan":             body.MinLoan,
		"large_loan_threshold": body.LargeLoanThreshold,
		"max_loan":             body.MaxLoan,
	})
}

func (h *Handler) setEligibility(c *gin.Context) {
	var body struct {
		MinReputation int64 `json:"min_reputation"`
		MinScore      int64 `json:"min_score"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.SetEligibility(c.Request.Context(), auth.CallerAddress(c), body.MinReputation, body.MinScore); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"min_reputation": body.MinReputation, "min_score": body.MinScore})
}
