package services

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// Actor identifies the authenticated user on behalf of whom a service
// call runs. Ownership scoping and the admin bypass key off it instead
// of ambient request state.
type Actor struct {
	UserID uint
	Role   models.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// IsManager reports whether the actor holds the manager role.
func (a Actor) IsManager() bool { return a.Role == models.RoleManager }

// RegisterUserInput holds the fields accepted when creating a user.
type RegisterUserInput struct {
	Name      string
	Email     string
	Password  string
	Role      models.Role
	ManagerID *uint
	IsActive  *bool
}

// UpdateUserInput holds the optional fields of a partial user update.
type UpdateUserInput struct {
	Name         *string
	Email        *string
	ManagerID    *uint
	ClearManager bool
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	RegisterUser(actor Actor, input RegisterUserInput) (*models.User, error)
	GetUsers(activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	GetUsersByRole(role models.Role) ([]models.User, error)
	GetUsersByManager(managerID uint) ([]models.User, error)
	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	UpdateUser(userID uint, input UpdateUserInput) (*models.User, error)
	DeleteUser(userID uint) error
	UpdateUserStatus(actor Actor, userID uint, isActive bool) error
	ChangePassword(userID uint, newPassword string) error
	AttemptLogin(email, password string) (*models.User, error)
	StoreSessionTokenHash(userID uint, tokenHash string) error
	ClearSession(userID uint) error
	IsSessionValid(userID uint, tokenHash string) bool
}

// CategoryWithCount is a category annotated with the number of
// transactions referencing it.
type CategoryWithCount struct {
	models.Category
	TransactionCount int64 `json:"transaction_count"`
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(actor Actor, name string, categoryType models.CategoryType, color *string) (*models.Category, error)
	GetCategoriesForUser(actor Actor) ([]models.Category, error)
	GetCategoriesByType(actor Actor, categoryType models.CategoryType) ([]models.Category, error)
	GetSystemCategories() ([]models.Category, error)
	GetCustomCategories(actor Actor) ([]models.Category, error)
	GetCategoriesWithTransactionCount(actor Actor) ([]CategoryWithCount, error)
	GetCategoryByID(actor Actor, categoryID uint) (*models.Category, error)
	UpdateCategory(actor Actor, categoryID uint, name string, categoryType *models.CategoryType, color *string) (*models.Category, error)
	DeleteCategory(actor Actor, categoryID uint) error
	MergeCategories(actor Actor, sourceID, targetID uint) error
}

// TagWithCount is a tag annotated with the number of transactions
// using it.
type TagWithCount struct {
	models.Tag
	TransactionCount int64 `json:"transaction_count"`
}

// TagServicer defines the contract for tag-related business logic.
type TagServicer interface {
	CreateTag(actor Actor, name string) (*models.Tag, error)
	GetTagsForUser(actor Actor) ([]models.Tag, error)
	GetTagsByFrequency(actor Actor) ([]TagWithCount, error)
	SearchTags(actor Actor, query string) ([]models.Tag, error)
	GetTagsWithTransactionCount(actor Actor) ([]TagWithCount, error)
	GetTagByID(actor Actor, tagID uint) (*models.Tag, error)
	UpdateTag(actor Actor, tagID uint, name string) (*models.Tag, error)
	DeleteTag(actor Actor, tagID uint) error
	CreateMultipleTags(actor Actor, names []string) []models.Tag
}

// CreateTransactionInput holds the fields accepted when recording a
// transaction.
type CreateTransactionInput struct {
	Amount            decimal.Decimal
	Date              time.Time
	Description       *string
	PaymentMethod     string
	Location          *string
	IsRecurring       bool
	RecurrencePattern *string
	CategoryID        uint
}

// UpdateTransactionInput holds the optional fields of a partial
// transaction update.
type UpdateTransactionInput struct {
	Amount            *decimal.Decimal
	Date              *time.Time
	Description       *string
	PaymentMethod     *string
	Location          *string
	IsRecurring       *bool
	RecurrencePattern *string
	CategoryID        *uint
}

// Period is the resolved date window of a summary.
type Period struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SummaryTotals holds the aggregate figures of a summary.
type SummaryTotals struct {
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TotalInvestments decimal.Decimal `json:"total_investments"`
	NetCashflow      decimal.Decimal `json:"net_cashflow"`
	SavingsRate      decimal.Decimal `json:"savings_rate"`
}

// CategoryExpense is one expense group in a summary, in first-occurrence
// order of its category.
type CategoryExpense struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Summary is the aggregated view of a user's transactions over a
// date window.
type Summary struct {
	Period             Period            `json:"period"`
	Summary            SummaryTotals     `json:"summary"`
	ExpensesByCategory []CategoryExpense `json:"expenses_by_category"`
	TransactionCount   int               `json:"transaction_count"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(actor Actor, input CreateTransactionInput) (*models.Transaction, error)
	GetTransactionsByUser(actor Actor, limit int) ([]models.Transaction, error)
	GetTransactionsBetweenDates(actor Actor, startDate, endDate time.Time) ([]models.Transaction, error)
	GetTransactionsByCategory(actor Actor, categoryID uint) ([]models.Transaction, error)
	GetTransactionsByTag(actor Actor, tagID uint) ([]models.Transaction, error)
	GetRecurringTransactions(actor Actor) ([]models.Transaction, error)
	GetTransactionByID(actor Actor, transactionID uint) (*models.Transaction, error)
	UpdateTransaction(actor Actor, transactionID uint, input UpdateTransactionInput) (*models.Transaction, error)
	DeleteTransaction(actor Actor, transactionID uint) error
	AddTagsToTransaction(actor Actor, transactionID uint, tagIDs []uint) error
	RemoveTagsFromTransaction(actor Actor, transactionID uint, tagIDs []uint) error
	Summarize(actor Actor, startDate, endDate *time.Time) (*Summary, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
