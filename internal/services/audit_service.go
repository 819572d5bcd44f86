package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// auditService persists an audit trail of sensitive actions.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit entry. Audit failures are logged and swallowed
// so they never fail the action they describe.
func (s *auditService) Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{}) {
	var encoded string
	if len(changes) > 0 {
		raw, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Warnw("audit changes not serializable", "action", action, "error", err)
		} else {
			encoded = string(raw)
		}
	}

	entry := models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encoded,
	}

	if err := s.db.Create(&entry).Error; err != nil {
		logger.Get().Errorw("audit write failed", "action", action, "user_id", userID, "error", err)
	}
}
