package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// tagService handles tag-related business logic.
type tagService struct {
	db *gorm.DB
}

// NewTagService creates a new TagServicer.
func NewTagService(db *gorm.DB) TagServicer {
	return &tagService{db: db}
}

// CreateTag creates a tag owned by the actor.
func (s *tagService) CreateTag(actor Actor, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "tag name is required")
	}

	tag := &models.Tag{
		Name:   name,
		UserID: actor.UserID,
	}

	if err := s.db.Create(tag).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return tag, nil
}

// GetTagsForUser retrieves all of the actor's tags.
func (s *tagService) GetTagsForUser(actor Actor) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.Where("user_id = ?", actor.UserID).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tags, nil
}

// GetTagsByFrequency retrieves the actor's tags ordered by how many
// transactions carry each, most used first.
func (s *tagService) GetTagsByFrequency(actor Actor) ([]TagWithCount, error) {
	return s.tagsWithCounts(actor, "transaction_count DESC, tags.name ASC")
}

// GetTagsWithTransactionCount retrieves the actor's tags annotated
// with usage counts in name order.
func (s *tagService) GetTagsWithTransactionCount(actor Actor) ([]TagWithCount, error) {
	return s.tagsWithCounts(actor, "tags.name ASC")
}

func (s *tagService) tagsWithCounts(actor Actor, order string) ([]TagWithCount, error) {
	var results []TagWithCount
	err := s.db.Model(&models.Tag{}).
		Select("tags.*, COUNT(tag_transactions.transaction_id) AS transaction_count").
		Joins("LEFT JOIN tag_transactions ON tag_transactions.tag_id = tags.id").
		Where("tags.user_id = ?", actor.UserID).
		Group("tags.id").
		Order(order).
		Find(&results).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return results, nil
}

// SearchTags retrieves the actor's tags whose names contain the term.
func (s *tagService) SearchTags(actor Actor, term string) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.
		Where("user_id = ? AND LOWER(name) LIKE LOWER(?)", actor.UserID, "%"+term+"%").
		Order("name ASC").
		Find(&tags).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tags, nil
}

// GetTagByID retrieves one of the actor's tags by ID.
func (s *tagService) GetTagByID(actor Actor, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.Where("id = ? AND user_id = ?", id, actor.UserID).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTagNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &tag, nil
}

// UpdateTag renames one of the actor's tags.
func (s *tagService) UpdateTag(actor Actor, id uint, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "tag name is required")
	}

	tag, err := s.GetTagByID(actor, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(tag).Update("name", name).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tag, nil
}

// DeleteTag removes one of the actor's tags and its transaction links.
func (s *tagService) DeleteTag(actor Actor, id uint) error {
	tag, err := s.GetTagByID(actor, id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(tag).Association("Transactions").Clear(); err != nil {
			return err
		}
		return tx.Delete(tag).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// CreateMultipleTags creates tags in bulk for the actor. Names are
// trimmed, blanks dropped, and duplicates collapsed case-sensitively.
// Names the actor already owns are returned as their existing rows
// rather than recreated. On any failure the whole batch is rolled back
// and an empty slice is returned.
func (s *tagService) CreateMultipleTags(actor Actor, names []string) []models.Tag {
	seen := make(map[string]struct{}, len(names))
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}

	if len(cleaned) == 0 {
		return []models.Tag{}
	}

	var existing []models.Tag
	if err := s.db.
		Where("user_id = ? AND name IN ?", actor.UserID, cleaned).
		Find(&existing).Error; err != nil {
		logger.Get().Errorw("bulk tag lookup failed", "user_id", actor.UserID, "error", err)
		return []models.Tag{}
	}

	existingByName := make(map[string]models.Tag, len(existing))
	for _, tag := range existing {
		existingByName[tag.Name] = tag
	}

	created := make([]models.Tag, 0, len(cleaned))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, name := range cleaned {
			if _, ok := existingByName[name]; ok {
				continue
			}
			tag := models.Tag{Name: name, UserID: actor.UserID}
			if err := tx.Create(&tag).Error; err != nil {
				return err
			}
			created = append(created, tag)
		}
		return nil
	})
	if err != nil {
		logger.Get().Errorw("bulk tag creation failed", "user_id", actor.UserID, "error", err)
		return []models.Tag{}
	}

	result := make([]models.Tag, 0, len(cleaned))
	for _, name := range cleaned {
		if tag, ok := existingByName[name]; ok {
			result = append(result, tag)
		}
	}
	result = append(result, created...)
	return result
}
