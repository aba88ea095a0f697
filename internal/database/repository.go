package database

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"focusmru/internal/models"
)

// Repository handles the event journal and the error log
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a journal event
func (r *Repository) Create(event *models.FocusEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert focus event")
	}
	return nil
}

// CreateBatch inserts several events in one transaction
func (r *Repository) CreateBatch(events []*models.FocusEvent) error {
	if len(events) == 0 {
		return nil
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(events).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to insert focus events")
	}
	return nil
}

// GetByID retrieves an event by its ID
func (r *Repository) GetByID(id uint) (*models.FocusEvent, error) {
	var event models.FocusEvent
	result := r.db.First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get focus event")
	}
	return &event, nil
}

// GetEventsSince retrieves events since a given time, oldest first. An
// empty kind matches every kind.
func (r *Repository) GetEventsSince(since time.Time, kind string) ([]*models.FocusEvent, error) {
	var events []*models.FocusEvent
	query := r.db.Where("timestamp >= ?", since)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	result := query.Order("timestamp ASC, id ASC").Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query focus events")
	}
	return events, nil
}

// GetRecent returns up to limit events, newest first
func (r *Repository) GetRecent(limit int) ([]*models.FocusEvent, error) {
	var events []*models.FocusEvent
	result := r.db.Order("timestamp DESC, id DESC").Limit(limit).Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query recent events")
	}
	return events, nil
}

// GetActivationSummarySince counts activations per application since a
// given time, most activated first
func (r *Repository) GetActivationSummarySince(since time.Time) ([]models.AppSummary, error) {
	var rows []struct {
		BundleID    string
		AppName     string
		Activations int
		LastSeen    string
	}

	result := r.db.Model(&models.FocusEvent{}).
		Select("bundle_id, MAX(app_name) as app_name, COUNT(*) as activations, MAX(timestamp) as last_seen").
		Where("kind = ? AND timestamp >= ?", models.KindActivation, since).
		Group("bundle_id").
		Order("activations DESC, bundle_id ASC").
		Scan(&rows)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query activation summary")
	}

	summaries := make([]models.AppSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, models.AppSummary{
			BundleID:    row.BundleID,
			AppName:     row.AppName,
			Activations: row.Activations,
			LastSeen:    parseSQLiteTime(row.LastSeen),
		})
	}
	return summaries, nil
}

// sqlite returns aggregated DATETIME columns as text.
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetLatest retrieves the most recent event of kind (any kind when empty)
func (r *Repository) GetLatest(kind string) (*models.FocusEvent, error) {
	var event models.FocusEvent
	query := r.db.Order("timestamp DESC, id DESC")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	result := query.First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest event")
	}
	return &event, nil
}

// Count returns the number of journaled events
func (r *Repository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.FocusEvent{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count focus events")
	}
	return count, nil
}

// DeleteOldEvents deletes events older than a specified date (soft delete)
func (r *Repository) DeleteOldEvents(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.FocusEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old events")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetRecentErrors returns up to limit error logs, newest first
func (r *Repository) GetRecentErrors(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Order("timestamp DESC, id DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all journal events from the database
func (r *Repository) Clear() error {
	result := r.db.Exec("DELETE FROM focus_events")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear focus events")
	}
	return nil
}
