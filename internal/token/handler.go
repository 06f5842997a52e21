package token

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/auth"
	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Handler handles HTTP requests for stablecoin operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers token routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	tokens := router.Group("/token")
	{
		tokens.GET("/balance/:address", h.balance)
		tokens.GET("/allowance/:owner/:spender", h.allowance)
		tokens.POST("/approve", h.approve)
		tokens.POST("/transfer", h.transfer)
		tokens.POST("/mint", h.mint)
	}
}

func (h *Handler) balance(c *gin.Context) {
	addr, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := h.service.BalanceOf(c.Request.Context(), addr)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr, "balance": amount})
}

func (h *Handler) allowance(c *gin.Context) {
	owner, err := ledger.ParseAddress(c.Param("owner"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	spender, err := ledger.ParseAddress(c.Param("spender"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := h.service.Allowance(c.Request.Context(), owner, spender)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner, "spender": spender, "allowance": amount})
}

func (h *Handler) approve(c *gin.Context) {
	var body struct {
		Spender string `json:"spender" binding:"required"`
		Amount  int64  `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	spender, err := ledger.ParseAddress(body.Spender)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Approve(c.Request.Context(), auth.CallerAddress(c), spender, body.Amount); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"spender": spender, "amount": body.Amount})
}

func (h *Handler) transfer(c *gin.Context) {
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
	if err := h.service.Transfer(c.Request.Context(), auth.CallerAddress(c), to, body.Amount); err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"to": to, "amount": body.Amount})
}

func (h *Handler) mint(c *gin.Context) {
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
	caller := auth.CallerAddress(c)
	if err := h.service.Mint(c.Request.Context(), caller, to, body.Amount); err != nil {
		h.logger.Error("Mint failed", zap.String("caller", caller.String()), zap.Error(err))
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"to": to, "amount": body.Amount})
}
