package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active plain user with a hashed password
// and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, models.RoleUser)
}

// CreateTestUserWithRole creates a user holding the given role.
func CreateTestUserWithRole(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	n := nextID()
	user := &models.User{
		Name:     fmt.Sprintf("Test User %d", n),
		Email:    fmt.Sprintf("user%d@test.com", n),
		Password: string(hash),
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a custom category of the given type owned
// by the user.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
		UserID: &userID,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestSystemCategory creates a shared system category.
func CreateTestSystemCategory(t *testing.T, db *gorm.DB, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:     fmt.Sprintf("System Category %d", nextID()),
		Type:     categoryType,
		IsSystem: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test system category: %v", err)
	}
	return category
}

// CreateTestTag creates a tag owned by the user.
func CreateTestTag(t *testing.T, db *gorm.DB, userID uint) *models.Tag {
	t.Helper()

	tag := &models.Tag{
		Name:   fmt.Sprintf("tag-%d", nextID()),
		UserID: userID,
	}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create test tag: %v", err)
	}
	return tag
}

// CreateTestTransaction creates a transaction dated today with the
// given amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, categoryID uint, amount decimal.Decimal) *models.Transaction {
	t.Helper()
	return CreateTestTransactionOnDate(t, db, userID, categoryID, amount, time.Now())
}

// CreateTestTransactionOnDate creates a transaction on a specific date.
func CreateTestTransactionOnDate(t *testing.T, db *gorm.DB, userID, categoryID uint, amount decimal.Decimal, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		Amount:        amount,
		Date:          date,
		PaymentMethod: "card",
		UserID:        userID,
		CategoryID:    categoryID,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
