package models

// Tag is a free-form label a user attaches to transactions. Names are
// not unique; bulk creation dedupes per user on the trimmed name.
type Tag struct {
	Base
	Name   string `gorm:"not null" json:"name"`
	UserID uint   `gorm:"not null" json:"user_id"`

	// Relationships
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Transactions []Transaction `gorm:"many2many:tag_transactions" json:"transactions,omitempty"`
}
