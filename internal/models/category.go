package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome     CategoryType = "income"
	CategoryTypeExpense    CategoryType = "expense"
	CategoryTypeInvestment CategoryType = "investment"
)

// Category classifies transactions. System categories have no owner
// (UserID is nil) and are visible to every user; custom categories are
// visible only to their owner.
type Category struct {
	Base
	Name     string       `gorm:"not null" json:"name"`
	Type     CategoryType `gorm:"not null" json:"type"`
	Color    *string      `gorm:"size:7" json:"color,omitempty"`
	IsSystem bool         `gorm:"default:false" json:"is_system"`
	UserID   *uint        `json:"user_id,omitempty"`

	// Relationships
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
}
