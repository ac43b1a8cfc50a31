package service

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/feedsync/internal/models"
)

// TelemetryService persists per-event failures so operators can see why a
// batch item was redelivered.
type TelemetryService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTelemetryService(db *gorm.DB, logger *zap.Logger) *TelemetryService {
	return &TelemetryService{
		db:     db,
		logger: logger,
	}
}

func (t *TelemetryService) RecordError(level, source, title, message string, options ...ErrorLogOption) error {
	errorLog := &models.ErrorLog{
		Level:   level,
		Source:  source,
		Title:   title,
		Message: message,
	}

	for _, option := range options {
		option(errorLog)
	}

	return t.db.Create(errorLog).Error
}

// GetRecentErrors returns the newest error rows for the ops endpoint.
func (t *TelemetryService) GetRecentErrors(limit int) ([]models.ErrorLog, error) {
	var errors []models.ErrorLog
	err := t.db.Order("created_at desc").Limit(limit).Find(&errors).Error
	return errors, err
}

type ErrorLogOption func(*models.ErrorLog)

func WithDetailType(detailType string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.DetailType = detailType
	}
}

func WithMessageID(messageID string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.MessageID = messageID
	}
}

func WithLegacyID(legacyID int64) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.LegacyID = &legacyID
	}
}

func WithContext(context map[string]interface{}) ErrorLogOption {
	return func(e *models.ErrorLog) {
		if contextBytes, err := json.Marshal(context); err == nil {
			e.Context = string(contextBytes)
		}
	}
}
