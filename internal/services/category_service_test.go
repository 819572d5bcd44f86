package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func TestCreateCategory(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		color := "#FF0000"
		cat, err := svc.CreateCategory(actorFor(user), "Groceries", models.CategoryTypeExpense, &color)
		testutil.AssertNoError(t, err)

		if cat.ID == 0 {
			t.Fatal("expected non-zero category ID")
		}
		if cat.IsSystem {
			t.Error("expected custom category")
		}
		if cat.UserID == nil || *cat.UserID != user.ID {
			t.Errorf("expected owner %d, got %v", user.ID, cat.UserID)
		}
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateCategory(actorFor(user), "", models.CategoryTypeExpense, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestCategoryVisibility(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)

	user1 := testutil.CreateTestUser(t, db)
	user2 := testutil.CreateTestUser(t, db)

	system := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
	own := testutil.CreateTestCategory(t, db, user1.ID, models.CategoryTypeExpense)
	foreign := testutil.CreateTestCategory(t, db, user2.ID, models.CategoryTypeExpense)

	t.Run("list_includes_system_and_own", func(t *testing.T) {
		categories, err := svc.GetCategoriesForUser(actorFor(user1))
		testutil.AssertNoError(t, err)

		if len(categories) != 2 {
			t.Fatalf("expected 2 visible categories, got %d", len(categories))
		}
		for _, cat := range categories {
			if cat.ID == foreign.ID {
				t.Error("foreign custom category should not be visible")
			}
		}
	})

	t.Run("system_category_readable_by_anyone", func(t *testing.T) {
		cat, err := svc.GetCategoryByID(actorFor(user1), system.ID)
		testutil.AssertNoError(t, err)
		if cat.ID != system.ID {
			t.Errorf("expected category %d, got %d", system.ID, cat.ID)
		}
	})

	t.Run("foreign_category_hidden", func(t *testing.T) {
		_, err := svc.GetCategoryByID(actorFor(user1), foreign.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("custom_excludes_system", func(t *testing.T) {
		categories, err := svc.GetCustomCategories(actorFor(user1))
		testutil.AssertNoError(t, err)
		if len(categories) != 1 || categories[0].ID != own.ID {
			t.Errorf("expected only own custom category, got %v", categories)
		}
	})

	t.Run("system_listing", func(t *testing.T) {
		categories, err := svc.GetSystemCategories()
		testutil.AssertNoError(t, err)
		if len(categories) != 1 || categories[0].ID != system.ID {
			t.Errorf("expected only system category, got %v", categories)
		}
	})
}

func TestGetCategoriesByType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)

	testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)
	testutil.CreateTestSystemCategory(t, db, models.CategoryTypeIncome)

	income, err := svc.GetCategoriesByType(actorFor(user), models.CategoryTypeIncome)
	testutil.AssertNoError(t, err)
	if len(income) != 2 {
		t.Errorf("expected 2 income categories, got %d", len(income))
	}

	investments, err := svc.GetCategoriesByType(actorFor(user), models.CategoryTypeInvestment)
	testutil.AssertNoError(t, err)
	if len(investments) != 0 {
		t.Errorf("expected no investment categories, got %d", len(investments))
	}
}

func TestUpdateCategory(t *testing.T) {
	t.Run("rename_and_recolor", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		color := "#00FF00"
		updated, err := svc.UpdateCategory(actorFor(user), cat.ID, "Renamed", nil, &color)
		testutil.AssertNoError(t, err)

		if updated.Name != "Renamed" {
			t.Errorf("expected name Renamed, got %s", updated.Name)
		}
		if updated.Color == nil || *updated.Color != "#00FF00" {
			t.Errorf("expected color #00FF00, got %v", updated.Color)
		}
	})

	t.Run("system_category_immutable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		system := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)

		_, err := svc.UpdateCategory(actorFor(user), system.ID, "Hacked", nil, nil)
		testutil.AssertAppError(t, err, "SYSTEM_CATEGORY")
	})
}

func TestDeleteCategory(t *testing.T) {
	t.Run("own_custom_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		testutil.AssertNoError(t, svc.DeleteCategory(actorFor(user), cat.ID))

		_, err := svc.GetCategoryByID(actorFor(user), cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("system_category_protected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		system := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)

		err := svc.DeleteCategory(actorFor(user), system.ID)
		testutil.AssertAppError(t, err, "SYSTEM_CATEGORY")
	})
}

func TestMergeCategories(t *testing.T) {
	t.Run("moves_transactions_and_deletes_source", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		source := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		target := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		for i := 0; i < 5; i++ {
			testutil.CreateTestTransaction(t, db, user.ID, source.ID, decimal.NewFromInt(10))
		}

		testutil.AssertNoError(t, svc.MergeCategories(actorFor(user), source.ID, target.ID))

		var moved int64
		db.Model(&models.Transaction{}).Where("category_id = ?", target.ID).Count(&moved)
		if moved != 5 {
			t.Errorf("expected 5 transactions on target, got %d", moved)
		}

		var remaining int64
		db.Model(&models.Category{}).Where("id = ?", source.ID).Count(&remaining)
		if remaining != 0 {
			t.Error("expected source category to be deleted")
		}
	})

	t.Run("same_category_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		err := svc.MergeCategories(actorFor(user), cat.ID, cat.ID)
		testutil.AssertAppError(t, err, "MERGE_SAME_CATEGORY")
	})

	t.Run("missing_category_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		err := svc.MergeCategories(actorFor(user), cat.ID, 99999)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")

		err = svc.MergeCategories(actorFor(user), 99999, cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("system_source_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		system := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		target := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		err := svc.MergeCategories(actorFor(user), system.ID, target.ID)
		testutil.AssertAppError(t, err, "SYSTEM_CATEGORY")
	})

	t.Run("system_target_forbidden_for_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		user := testutil.CreateTestUser(t, db)

		source := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		system := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)

		err := svc.MergeCategories(actorFor(user), source.ID, system.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("admin_merges_into_system_target", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		admin := testutil.CreateTestUserWithRole(t, db, models.RoleAdmin)
		user := testutil.CreateTestUser(t, db)

		source := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		system := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		testutil.CreateTestTransaction(t, db, user.ID, source.ID, decimal.NewFromInt(25))

		testutil.AssertNoError(t, svc.MergeCategories(actorFor(admin), source.ID, system.ID))

		var moved int64
		db.Model(&models.Transaction{}).Where("category_id = ?", system.ID).Count(&moved)
		if moved != 1 {
			t.Errorf("expected 1 transaction on system target, got %d", moved)
		}
	})

	t.Run("foreign_categories_forbidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)

		source := testutil.CreateTestCategory(t, db, owner.ID, models.CategoryTypeExpense)
		target := testutil.CreateTestCategory(t, db, owner.ID, models.CategoryTypeExpense)
		mine := testutil.CreateTestCategory(t, db, other.ID, models.CategoryTypeExpense)
		testutil.CreateTestTransaction(t, db, owner.ID, source.ID, decimal.NewFromInt(40))

		err := svc.MergeCategories(actorFor(other), source.ID, target.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")

		err = svc.MergeCategories(actorFor(other), source.ID, mine.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")

		var untouched int64
		db.Model(&models.Transaction{}).Where("category_id = ?", source.ID).Count(&untouched)
		if untouched != 1 {
			t.Errorf("expected owner's transaction to stay on its category, got %d", untouched)
		}

		var sourceCount int64
		db.Model(&models.Category{}).Where("id = ?", source.ID).Count(&sourceCount)
		if sourceCount != 1 {
			t.Error("expected owner's category to survive")
		}
	})
}

func TestGetCategoriesWithTransactionCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	user := testutil.CreateTestUser(t, db)

	busy := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	idle := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

	for i := 0; i < 3; i++ {
		testutil.CreateTestTransaction(t, db, user.ID, busy.ID, decimal.NewFromInt(5))
	}

	results, err := svc.GetCategoriesWithTransactionCount(actorFor(user))
	testutil.AssertNoError(t, err)

	if len(results) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(results))
	}
	if results[0].ID != busy.ID || results[0].TransactionCount != 3 {
		t.Errorf("expected busy category first with count 3, got %d with count %d", results[0].ID, results[0].TransactionCount)
	}
	if results[1].ID != idle.ID || results[1].TransactionCount != 0 {
		t.Errorf("expected idle category with count 0, got %d with count %d", results[1].ID, results[1].TransactionCount)
	}
}
