package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/services"
)

const dateLayout = "2006-01-02"

// TransactionHandler handles transaction-related requests
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the payload for recording a transaction
type CreateTransactionRequest struct {
	Amount            decimal.Decimal `json:"amount" binding:"required"`
	Date              string          `json:"date" binding:"required"`
	Description       *string         `json:"description" binding:"omitempty,max=500"`
	PaymentMethod     string          `json:"payment_method" binding:"required,max=100"`
	Location          *string         `json:"location" binding:"omitempty,max=255"`
	IsRecurring       bool            `json:"is_recurring"`
	RecurrencePattern *string         `json:"recurrence_pattern" binding:"omitempty,recurrence_pattern"`
	CategoryID        uint            `json:"category_id" binding:"required"`
}

// UpdateTransactionRequest represents the payload for a partial transaction update
type UpdateTransactionRequest struct {
	Amount            *decimal.Decimal `json:"amount"`
	Date              *string          `json:"date"`
	Description       *string          `json:"description" binding:"omitempty,max=500"`
	PaymentMethod     *string          `json:"payment_method" binding:"omitempty,max=100"`
	Location          *string          `json:"location" binding:"omitempty,max=255"`
	IsRecurring       *bool            `json:"is_recurring"`
	RecurrencePattern *string          `json:"recurrence_pattern" binding:"omitempty,recurrence_pattern"`
	CategoryID        *uint            `json:"category_id"`
}

// TransactionTagsRequest represents the payload for tagging operations
type TransactionTagsRequest struct {
	TagIDs []uint `json:"tag_ids"`
}

func parseDate(value, field string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrValidation, "Invalid "+field+", expected YYYY-MM-DD")
	}
	return parsed, nil
}

// CreateTransaction records a new transaction
// @Summary     Create a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	date, err := parseDate(req.Date, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(actor, services.CreateTransactionInput{
		Amount:            req.Amount,
		Date:              date,
		Description:       req.Description,
		PaymentMethod:     req.PaymentMethod,
		Location:          req.Location,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
		CategoryID:        req.CategoryID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "transaction.create", "transaction", transaction.ID, c.ClientIP(), nil)

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransactions retrieves the user's transactions
// @Summary     Get all transactions
// @Description Get the user's transactions, most recent first. Pass start_date and end_date for a window, or limit to cap the rows.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       start_date query string false "Window start (YYYY-MM-DD)"
// @Param       end_date query string false "Window end (YYYY-MM-DD)"
// @Param       limit query int false "Maximum rows"
// @Success     200 {array} models.Transaction "List of transactions"
// @Failure     422 {object} ErrorResponse "Invalid dates"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	startParam := c.Query("start_date")
	endParam := c.Query("end_date")
	if startParam != "" || endParam != "" {
		if startParam == "" || endParam == "" {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, "start_date and end_date must be given together"))
			return
		}
		start, err := parseDate(startParam, "start_date")
		if err != nil {
			respondWithError(c, err)
			return
		}
		end, err := parseDate(endParam, "end_date")
		if err != nil {
			respondWithError(c, err)
			return
		}

		transactions, err := h.transactionService.GetTransactionsBetweenDates(actor, start, end)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": transactions})
		return
	}

	limit := 0
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid limit"))
			return
		}
		limit = parsed
	}

	transactions, err := h.transactionService.GetTransactionsByUser(actor, limit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetSummary aggregates the user's transactions over a date window
// @Summary     Get transaction summary
// @Description Aggregate totals, savings rate, and expense breakdown. Defaults to the current month.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       start_date query string false "Window start (YYYY-MM-DD)"
// @Param       end_date query string false "Window end (YYYY-MM-DD)"
// @Success     200 {object} services.Summary "Summary"
// @Failure     422 {object} ErrorResponse "Invalid dates"
// @Router      /transactions/summary [get]
func (h *TransactionHandler) GetSummary(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var start, end *time.Time
	if param := c.Query("start_date"); param != "" {
		parsed, err := parseDate(param, "start_date")
		if err != nil {
			respondWithError(c, err)
			return
		}
		start = &parsed
	}
	if param := c.Query("end_date"); param != "" {
		parsed, err := parseDate(param, "end_date")
		if err != nil {
			respondWithError(c, err)
			return
		}
		end = &parsed
	}

	summary, err := h.transactionService.Summarize(actor, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetRecurringTransactions retrieves the user's recurring transactions
// @Summary     Get recurring transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Transaction "List of recurring transactions"
// @Router      /transactions/recurring [get]
func (h *TransactionHandler) GetRecurringTransactions(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetRecurringTransactions(actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetTransactionsByCategory retrieves transactions in one category
// @Summary     Get transactions by category
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Success     200 {array} models.Transaction "List of transactions"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /transactions/category/{id} [get]
func (h *TransactionHandler) GetTransactionsByCategory(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetTransactionsByCategory(actor, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetTransactionsByTag retrieves transactions carrying one tag
// @Summary     Get transactions by tag
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Tag ID"
// @Success     200 {array} models.Transaction "List of transactions"
// @Router      /transactions/tag/{id} [get]
func (h *TransactionHandler) GetTransactionsByTag(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tagID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetTransactionsByTag(actor, tagID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetTransaction retrieves a single transaction
// @Summary     Get transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(actor, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction applies a partial update to a transaction
// @Summary     Update a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	input := services.UpdateTransactionInput{
		Amount:            req.Amount,
		Description:       req.Description,
		PaymentMethod:     req.PaymentMethod,
		Location:          req.Location,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
		CategoryID:        req.CategoryID,
	}

	if req.Date != nil {
		date, err := parseDate(*req.Date, "date")
		if err != nil {
			respondWithError(c, err)
			return
		}
		input.Date = &date
	}

	transaction, err := h.transactionService.UpdateTransaction(actor, transactionID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "transaction.update", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction removes a transaction
// @Summary     Delete a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(actor, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "transaction.delete", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// AddTags attaches tags to a transaction
// @Summary     Add tags to a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Param       request body TransactionTagsRequest true "Tag IDs"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id}/tags [post]
func (h *TransactionHandler) AddTags(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	if len(req.TagIDs) == 0 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, "tag_ids must not be empty"))
		return
	}

	if err := h.transactionService.AddTagsToTransaction(actor, transactionID, req.TagIDs); err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(actor, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// RemoveTags detaches tags from a transaction
// @Summary     Remove tags from a transaction
// @Description Detach the given tags, or every tag when tag_ids is omitted
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Param       request body TransactionTagsRequest false "Tag IDs"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id}/tags [delete]
func (h *TransactionHandler) RemoveTags(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionTagsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
			return
		}
	}

	if err := h.transactionService.RemoveTagsFromTransaction(actor, transactionID, req.TagIDs); err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(actor, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}
