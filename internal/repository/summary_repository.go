package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-tracker/internal/model"
)

// SummaryRepository stores per-user daily summaries and in-app notifications.
type SummaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Upsert writes s, replacing any existing row for (user, date).
func (r *SummaryRepository) Upsert(ctx context.Context, s *model.DailySummary) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "summary_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_tasks", "completed_tasks", "missed_tasks", "completion_rate", "updated_at",
		}),
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (r *SummaryRepository) Get(ctx context.Context, userID uint, date string) (*model.DailySummary, error) {
	var s model.DailySummary
	err := r.db.WithContext(ctx).Where("user_id = ? AND summary_date = ?", userID, date).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return &s, nil
}

func (r *SummaryRepository) CountForDate(ctx context.Context, date string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.DailySummary{}).Where("summary_date = ?", date).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count summaries: %w", err)
	}
	return n, nil
}

// NotificationRepository persists in-app notifications.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint) ([]model.Notification, error) {
	var out []model.Notification
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}
