package models

import "time"

// Role represents a user's access level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// User represents an account holder. Managers supervise the users whose
// ManagerID points at them; admins have no manager.
type User struct {
	Base
	Name                string     `gorm:"not null" json:"name"`
	Email               string     `gorm:"uniqueIndex;not null" json:"email"`
	Password            string     `gorm:"not null" json:"-"`
	Role                Role       `gorm:"not null;default:user" json:"role"`
	ManagerID           *uint      `json:"manager_id,omitempty"`
	IsActive            bool       `gorm:"default:true" json:"is_active"`
	SessionTokenHash    string     `gorm:"size:64" json:"-"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`

	// Relationships
	Manager      *User         `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	ManagedUsers []User        `gorm:"foreignKey:ManagerID" json:"managed_users,omitempty"`
	Categories   []Category    `gorm:"foreignKey:UserID" json:"categories,omitempty"`
	Tags         []Tag         `gorm:"foreignKey:UserID" json:"tags,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:UserID" json:"transactions,omitempty"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsManager reports whether the user has the manager role.
func (u *User) IsManager() bool { return u.Role == RoleManager }
