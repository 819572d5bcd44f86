package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

var oneHundred = decimal.NewFromInt(100)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db         *gorm.DB
	categories CategoryServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, categories CategoryServicer) TransactionServicer {
	return &transactionService{db: db, categories: categories}
}

// CreateTransaction records a transaction against one of the actor's
// visible categories. Recurring transactions must carry a pattern.
func (s *transactionService) CreateTransaction(actor Actor, input CreateTransactionInput) (*models.Transaction, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "amount must be positive")
	}

	if input.IsRecurring && (input.RecurrencePattern == nil || *input.RecurrencePattern == "") {
		return nil, apperrors.ErrRecurrenceRequired
	}

	if _, err := s.categories.GetCategoryByID(actor, input.CategoryID); err != nil {
		return nil, err
	}

	recurrence := input.RecurrencePattern
	if !input.IsRecurring {
		recurrence = nil
	}

	transaction := &models.Transaction{
		Amount:            input.Amount,
		Date:              input.Date,
		Description:       input.Description,
		PaymentMethod:     input.PaymentMethod,
		Location:          input.Location,
		IsRecurring:       input.IsRecurring,
		RecurrencePattern: recurrence,
		UserID:            actor.UserID,
		CategoryID:        input.CategoryID,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetTransactionByID(actor, transaction.ID)
}

func (s *transactionService) scopedQuery(actor Actor) *gorm.DB {
	return s.db.
		Preload("Category").
		Preload("Tags").
		Where("transactions.user_id = ?", actor.UserID)
}

// GetTransactionsByUser retrieves the actor's transactions, most
// recent first, optionally capped to a row limit.
func (s *transactionService) GetTransactionsByUser(actor Actor, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.scopedQuery(actor).
		Order("date DESC, id DESC").
		Scopes(pagination.Limit(limit)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// GetTransactionsBetweenDates retrieves the actor's transactions whose
// date falls within the inclusive window.
func (s *transactionService) GetTransactionsBetweenDates(actor Actor, startDate, endDate time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.scopedQuery(actor).
		Where("date BETWEEN ? AND ?", startDate, endDate).
		Order("date DESC, id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// GetTransactionsByCategory retrieves the actor's transactions in one
// category.
func (s *transactionService) GetTransactionsByCategory(actor Actor, categoryID uint) ([]models.Transaction, error) {
	if _, err := s.categories.GetCategoryByID(actor, categoryID); err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	if err := s.scopedQuery(actor).
		Where("category_id = ?", categoryID).
		Order("date DESC, id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// GetTransactionsByTag retrieves the actor's transactions carrying a
// tag.
func (s *transactionService) GetTransactionsByTag(actor Actor, tagID uint) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.scopedQuery(actor).
		Joins("JOIN tag_transactions ON tag_transactions.transaction_id = transactions.id").
		Where("tag_transactions.tag_id = ?", tagID).
		Order("date DESC, transactions.id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// GetRecurringTransactions retrieves the actor's recurring transactions.
func (s *transactionService) GetRecurringTransactions(actor Actor) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.scopedQuery(actor).
		Where("is_recurring = ?", true).
		Order("date DESC, id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// GetTransactionByID retrieves one of the actor's transactions.
func (s *transactionService) GetTransactionByID(actor Actor, id uint) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.scopedQuery(actor).First(&transaction, "transactions.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies a partial update to one of the actor's
// transactions.
func (s *transactionService) UpdateTransaction(actor Actor, id uint, input UpdateTransactionInput) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(actor, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if input.Amount != nil {
		if input.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, apperrors.WithMessage(apperrors.ErrValidation, "amount must be positive")
		}
		updates["amount"] = *input.Amount
	}
	if input.Date != nil {
		updates["date"] = *input.Date
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.PaymentMethod != nil && *input.PaymentMethod != "" {
		updates["payment_method"] = *input.PaymentMethod
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.CategoryID != nil {
		if _, err := s.categories.GetCategoryByID(actor, *input.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *input.CategoryID
	}

	if input.IsRecurring != nil {
		recurring := *input.IsRecurring
		if recurring {
			pattern := input.RecurrencePattern
			if pattern == nil {
				pattern = transaction.RecurrencePattern
			}
			if pattern == nil || *pattern == "" {
				return nil, apperrors.ErrRecurrenceRequired
			}
			updates["recurrence_pattern"] = *pattern
		} else {
			updates["recurrence_pattern"] = nil
		}
		updates["is_recurring"] = recurring
	} else if input.RecurrencePattern != nil {
		if !transaction.IsRecurring {
			return nil, apperrors.WithMessage(apperrors.ErrValidation, "recurrence pattern requires a recurring transaction")
		}
		updates["recurrence_pattern"] = *input.RecurrencePattern
	}

	if len(updates) > 0 {
		if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetTransactionByID(actor, id)
}

// DeleteTransaction removes one of the actor's transactions and its
// tag links.
func (s *transactionService) DeleteTransaction(actor Actor, id uint) error {
	transaction, err := s.GetTransactionByID(actor, id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(transaction).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(transaction).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// AddTagsToTransaction attaches the actor's tags to a transaction.
// Tags already attached stay attached.
func (s *transactionService) AddTagsToTransaction(actor Actor, transactionID uint, tagIDs []uint) error {
	transaction, err := s.GetTransactionByID(actor, transactionID)
	if err != nil {
		return err
	}

	tags, err := s.ownedTags(actor, tagIDs)
	if err != nil {
		return err
	}

	if err := s.db.Model(transaction).Association("Tags").Append(tags); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RemoveTagsFromTransaction detaches tags from a transaction. A nil or
// empty ID list detaches every tag.
func (s *transactionService) RemoveTagsFromTransaction(actor Actor, transactionID uint, tagIDs []uint) error {
	transaction, err := s.GetTransactionByID(actor, transactionID)
	if err != nil {
		return err
	}

	if len(tagIDs) == 0 {
		if err := s.db.Model(transaction).Association("Tags").Clear(); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}

	tags, err := s.ownedTags(actor, tagIDs)
	if err != nil {
		return err
	}

	if err := s.db.Model(transaction).Association("Tags").Delete(tags); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *transactionService) ownedTags(actor Actor, tagIDs []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.
		Where("user_id = ? AND id IN ?", actor.UserID, tagIDs).
		Find(&tags).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(tags) != len(tagIDs) {
		return nil, apperrors.ErrTagNotFound
	}
	return tags, nil
}

// Summarize aggregates the actor's transactions over a date window.
// When no window is given it covers the current calendar month. Totals
// are partitioned by the transaction's category type, expenses are
// grouped per category in first-occurrence order, and the savings rate
// is net cashflow over income as a percentage rounded to two places.
func (s *transactionService) Summarize(actor Actor, startDate, endDate *time.Time) (*Summary, error) {
	// A half-open window is meaningless here: unless both bounds are
	// given, the whole window falls back to the current month.
	var start, end time.Time
	if startDate != nil && endDate != nil {
		start = *startDate
		end = *endDate
	} else {
		now := time.Now()
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		// End of the month's last day, not its midnight.
		end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}

	var transactions []models.Transaction
	if err := s.db.
		Preload("Category").
		Where("user_id = ? AND date BETWEEN ? AND ?", actor.UserID, start, end).
		Order("date ASC, id ASC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	totalIncome := decimal.Zero
	totalExpenses := decimal.Zero
	totalInvestments := decimal.Zero

	// Expense groups are keyed by category ID, not name: two distinct
	// categories sharing a name stay separate groups.
	expenseTotals := make(map[uint]decimal.Decimal)
	expenseNames := make(map[uint]string)
	var expenseOrder []uint

	for _, t := range transactions {
		switch t.Category.Type {
		case models.CategoryTypeIncome:
			totalIncome = totalIncome.Add(t.Amount)
		case models.CategoryTypeExpense:
			totalExpenses = totalExpenses.Add(t.Amount)
			if _, ok := expenseTotals[t.CategoryID]; !ok {
				expenseOrder = append(expenseOrder, t.CategoryID)
				expenseNames[t.CategoryID] = t.Category.Name
			}
			expenseTotals[t.CategoryID] = expenseTotals[t.CategoryID].Add(t.Amount)
		case models.CategoryTypeInvestment:
			totalInvestments = totalInvestments.Add(t.Amount)
		default:
			return nil, apperrors.ErrUnknownCategoryType
		}
	}

	netCashflow := totalIncome.Sub(totalExpenses).Sub(totalInvestments)

	savingsRate := decimal.Zero
	if totalIncome.IsPositive() {
		savingsRate = netCashflow.Div(totalIncome).Mul(oneHundred).Round(2)
	}

	expensesByCategory := make([]CategoryExpense, 0, len(expenseOrder))
	for _, categoryID := range expenseOrder {
		amount := expenseTotals[categoryID]
		percentage := decimal.Zero
		if totalExpenses.IsPositive() {
			percentage = amount.Div(totalExpenses).Mul(oneHundred).Round(2)
		}
		expensesByCategory = append(expensesByCategory, CategoryExpense{
			Category:   expenseNames[categoryID],
			Amount:     amount,
			Percentage: percentage,
		})
	}

	return &Summary{
		Period: Period{
			StartDate: start.Format("2006-01-02"),
			EndDate:   end.Format("2006-01-02"),
		},
		Summary: SummaryTotals{
			TotalIncome:      totalIncome,
			TotalExpenses:    totalExpenses,
			TotalInvestments: totalInvestments,
			NetCashflow:      netCashflow,
			SavingsRate:      savingsRate,
		},
		ExpensesByCategory: expensesByCategory,
		TransactionCount:   len(transactions),
	}, nil
}
