package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a custom category owned by the actor. System
// categories are seeded by migrations, never created through here.
func (s *categoryService) CreateCategory(actor Actor, name string, categoryType models.CategoryType, color *string) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	userID := actor.UserID
	category := &models.Category{
		Name:     name,
		Type:     categoryType,
		Color:    color,
		IsSystem: false,
		UserID:   &userID,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetCategoriesForUser retrieves the categories visible to a user:
// system categories plus the user's own custom ones.
func (s *categoryService) GetCategoriesForUser(actor Actor) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.
		Where("is_system = ? OR user_id = ?", true, actor.UserID).
		Order("is_system DESC, name ASC").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoriesByType retrieves visible categories of a single type.
func (s *categoryService) GetCategoriesByType(actor Actor, categoryType models.CategoryType) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.
		Where("type = ?", categoryType).
		Where("is_system = ? OR user_id = ?", true, actor.UserID).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetSystemCategories retrieves the shared system categories.
func (s *categoryService) GetSystemCategories() ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.Where("is_system = ?", true).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCustomCategories retrieves the actor's own custom categories.
func (s *categoryService) GetCustomCategories(actor Actor) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.
		Where("is_system = ? AND user_id = ?", false, actor.UserID).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoriesWithTransactionCount retrieves visible categories
// annotated with how many of the actor's transactions use each.
func (s *categoryService) GetCategoriesWithTransactionCount(actor Actor) ([]CategoryWithCount, error) {
	var results []CategoryWithCount
	err := s.db.Model(&models.Category{}).
		Select("categories.*, COUNT(transactions.id) AS transaction_count").
		Joins("LEFT JOIN transactions ON transactions.category_id = categories.id AND transactions.user_id = ?", actor.UserID).
		Where("categories.is_system = ? OR categories.user_id = ?", true, actor.UserID).
		Group("categories.id").
		Order("transaction_count DESC").
		Find(&results).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return results, nil
}

// GetCategoryByID retrieves a single category the actor can see.
func (s *categoryService) GetCategoryByID(actor Actor, id uint) (*models.Category, error) {
	category, err := s.findCategory(id)
	if err != nil {
		return nil, err
	}
	if !s.visibleTo(actor, category) {
		return nil, apperrors.ErrCategoryNotFound
	}
	return category, nil
}

func (s *categoryService) findCategory(id uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

func (s *categoryService) visibleTo(actor Actor, category *models.Category) bool {
	if category.IsSystem {
		return true
	}
	return category.UserID != nil && *category.UserID == actor.UserID
}

// ownedBy reports whether the actor may mutate the category. Unlike
// visibility, system categories are owned by nobody.
func (s *categoryService) ownedBy(actor Actor, category *models.Category) bool {
	if actor.IsAdmin() {
		return true
	}
	return category.UserID != nil && *category.UserID == actor.UserID
}

// UpdateCategory applies a partial update to one of the actor's custom
// categories. System categories are immutable.
func (s *categoryService) UpdateCategory(actor Actor, id uint, name string, categoryType *models.CategoryType, color *string) (*models.Category, error) {
	category, err := s.GetCategoryByID(actor, id)
	if err != nil {
		return nil, err
	}

	if category.IsSystem {
		return nil, apperrors.ErrSystemCategory
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if categoryType != nil {
		updates["type"] = *categoryType
	}
	if color != nil {
		updates["color"] = *color
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return category, nil
}

// DeleteCategory removes one of the actor's custom categories. System
// categories cannot be deleted.
func (s *categoryService) DeleteCategory(actor Actor, id uint) error {
	category, err := s.GetCategoryByID(actor, id)
	if err != nil {
		return err
	}

	if category.IsSystem {
		return apperrors.ErrSystemCategory
	}

	if err := s.db.Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// MergeCategories reassigns every transaction of the source category
// to the target, then deletes the source. Both categories must exist
// and belong to the actor (admins bypass ownership); the source must
// not be a system category. The move and deletion run in one database
// transaction.
func (s *categoryService) MergeCategories(actor Actor, sourceID, targetID uint) error {
	if sourceID == targetID {
		return apperrors.ErrMergeSameCategory
	}

	source, err := s.findCategory(sourceID)
	if err != nil {
		return err
	}
	target, err := s.findCategory(targetID)
	if err != nil {
		return err
	}

	if source.IsSystem {
		return apperrors.ErrSystemCategory
	}
	if !s.ownedBy(actor, source) || !s.ownedBy(actor, target) {
		return apperrors.ErrForbidden
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).
			Where("category_id = ?", sourceID).
			Update("category_id", targetID).Error; err != nil {
			return err
		}
		return tx.Delete(source).Error
	})
	if err != nil {
		logger.Get().Errorw("category merge failed",
			"source_id", sourceID,
			"target_id", targetID,
			"error", err,
		)
		return apperrors.Wrap(apperrors.ErrMergeFailed, err)
	}

	return nil
}
