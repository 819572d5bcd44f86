package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single financial record. Amounts are stored
// as decimal(12,2) so monetary sums stay exact.
type Transaction struct {
	Base
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Date              time.Time       `gorm:"not null" json:"date"`
	Description       *string         `json:"description,omitempty"`
	PaymentMethod     string          `gorm:"not null" json:"payment_method"`
	Location          *string         `json:"location,omitempty"`
	IsRecurring       bool            `gorm:"default:false" json:"is_recurring"`
	RecurrencePattern *string         `json:"recurrence_pattern,omitempty"`
	UserID            uint            `gorm:"not null" json:"user_id"`
	CategoryID        uint            `gorm:"not null" json:"category_id"`

	// Relationships
	User     *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Category Category `gorm:"foreignKey:CategoryID" json:"category"`
	Tags     []Tag    `gorm:"many2many:tag_transactions" json:"tags,omitempty"`
}
