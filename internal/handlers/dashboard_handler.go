package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrack/internal/services"
)

const recentTransactionLimit = 5

// DashboardHandler assembles the landing view of the API: the current
// month's summary, category usage, and the latest transactions.
type DashboardHandler struct {
	transactionService services.TransactionServicer
	categoryService    services.CategoryServicer
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(transactionService services.TransactionServicer, categoryService services.CategoryServicer) *DashboardHandler {
	return &DashboardHandler{
		transactionService: transactionService,
		categoryService:    categoryService,
	}
}

// GetDashboard returns the dashboard payload.
// @Summary     Get dashboard
// @Description Current-month summary, categories with usage counts, and the five most recent transactions
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Dashboard data"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.transactionService.Summarize(actor, nil, nil)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categories, err := h.categoryService.GetCategoriesWithTransactionCount(actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recent, err := h.transactionService.GetTransactionsByUser(actor, recentTransactionLimit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":             summary,
		"categories":          categories,
		"recent_transactions": recent,
	})
}
