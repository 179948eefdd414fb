package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-tracker/internal/model"
)

// ReminderRepository is the append-only reminder log.
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Claim inserts rec unless a record with the same (task, minute, type)
// already exists. The insert is a single conflict-ignoring statement, so two
// concurrent claims for one key cannot both succeed.
func (r *ReminderRepository) Claim(ctx context.Context, rec *model.ReminderRecord) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		return false, fmt.Errorf("claim reminder: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *ReminderRepository) ListByTask(ctx context.Context, taskID uint) ([]model.ReminderRecord, error) {
	var recs []model.ReminderRecord
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("scheduled_for ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return recs, nil
}
