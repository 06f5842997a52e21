package reports

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
)

// Handler handles HTTP requests for report exports
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers report routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports")
	{
		reports.GET("/portfolio", h.portfolio)
		reports.GET("/portfolio/export", h.exportPortfolio)
		reports.GET("/reputation", h.reputation)
		reports.GET("/reputation/export", h.exportReputation)
		reports.GET("/loans/:address/statement", h.loanStatement)
	}
}

func (h *Handler) portfolio(c *gin.Context) {
	rows, err := h.service.Portfolio(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build portfolio", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": rows})
}

// exportPortfolio streams the portfolio as xlsx or pdf depending on the
// format query parameter.
func (h *Handler) exportPortfolio(c *gin.Context) {
	rows, err := h.service.Portfolio(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	stamp := time.Now().UTC().Format("20060102")
	switch c.DefaultQuery("format", "xlsx") {
	case "pdf":
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="portfolio_%s.pdf"`, stamp))
		c.Header("Content-Type", "application/pdf")
		if err := WritePortfolioPDF(c.Writer, rows); err != nil {
			h.logger.Error("Portfolio PDF export failed", zap.Error(err))
		}
	case "xlsx":
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="portfolio_%s.xlsx"`, stamp))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := WritePortfolioExcel(c.Writer, rows); err != nil {
			h.logger.Error("Portfolio Excel export failed", zap.Error(err))
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format"})
	}
}

func (h *Handler) reputation(c *gin.Context) {
	rows, err := h.service.Reputation(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build reputation report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"holders": rows})
}

func (h *Handler) exportReputation(c *gin.Context) {
	rows, err := h.service.Reputation(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stamp := time.Now().UTC().Format("20060102")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="reputation_%s.xlsx"`, stamp))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := WriteReputationExcel(c.Writer, rows); err != nil {
		h.logger.Error("Reputation export failed", zap.Error(err))
	}
}

func (h *Handler) loanStatement(c *gin.Context) {
	borrower, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := h.service.LoanStatement(c.Request.Context(), borrower)
	if err != nil {
		c.JSON(ledger.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="statement_%s.pdf"`, borrower))
	c.Header("Content-Type", "application/pdf")
	if err := WriteLoanStatementPDF(c.Writer, row); err != nil {
		h.logger.Error("Statement PDF failed", zap.Error(err))
	}
}
