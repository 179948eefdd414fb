package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
)

// TaskRepository handles reads and writes of tasks, templates and instances.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// ListPendingScheduled returns reminder candidates for date: pending, timed,
// active, non-template tasks.
func (r *TaskRepository) ListPendingScheduled(ctx context.Context, date string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("task_date = ? AND status = ? AND scheduled_time IS NOT NULL AND scheduled_time <> ''", date, model.StatusPending).
		Where("is_active = ? AND is_recurring = ?", true, false).
		Order("scheduled_time ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return tasks, nil
}

// ListActiveTemplates returns recurrence templates that still generate.
func (r *TaskRepository) ListActiveTemplates(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("is_recurring = ? AND is_active = ? AND parent_task_id IS NULL", true, true).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return tasks, nil
}

// ListInstances returns the materialized instances of a template.
func (r *TaskRepository) ListInstances(ctx context.Context, templateID uint) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("parent_task_id = ?", templateID).
		Order("task_date ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	return tasks, nil
}

// CreateInstanceIfAbsent inserts inst unless its template already has an
// instance on inst.TaskDate. It reports whether a row was created.
func (r *TaskRepository) CreateInstanceIfAbsent(ctx context.Context, inst *model.Task) (bool, error) {
	if inst.ParentTaskID == nil {
		return false, errors.New("create instance: parent task id is required")
	}
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Task{}).
			Where("parent_task_id = ? AND task_date = ?", *inst.ParentTaskID, inst.TaskDate).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(inst).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("create instance: %w", err)
	}
	return created, nil
}

func (r *TaskRepository) MarkCompleted(ctx context.Context, task *model.Task, completedAt time.Time) error {
	task.Status = model.StatusCompleted
	task.CompletedAt = &completedAt
	err := r.db.WithContext(ctx).Model(task).Updates(map[string]interface{}{
		"status":       model.StatusCompleted,
		"completed_at": completedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

// MarkMissedBefore moves every stale pending task to missed and reports the
// distinct dates it touched. Templates and deactivated instances are left
// alone.
func (r *TaskRepository) MarkMissedBefore(ctx context.Context, date string) (int64, []string, error) {
	var (
		affected int64
		dates    []string
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := func() *gorm.DB {
			return tx.Model(&model.Task{}).
				Where("task_date < ? AND status = ?", date, model.StatusPending).
				Where("is_active = ? AND is_recurring = ?", true, false)
		}
		if err := stale().Distinct("task_date").Order("task_date ASC").Pluck("task_date", &dates).Error; err != nil {
			return err
		}
		if len(dates) == 0 {
			return nil
		}
		res := stale().Update("status", model.StatusMissed)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("mark missed: %w", err)
	}
	return affected, dates, nil
}

// CountByUserStatus tallies the tasks dated date per user and status.
func (r *TaskRepository) CountByUserStatus(ctx context.Context, date string) (map[uint]model.StatusCounts, error) {
	var rows []struct {
		UserID uint
		Status model.TaskStatus
		Count  int
	}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("user_id, status, COUNT(*) AS count").
		Where("task_date = ?", date).
		Where("is_active = ? AND is_recurring = ?", true, false).
		Group("user_id, status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	out := make(map[uint]model.StatusCounts)
	for _, row := range rows {
		c := out[row.UserID]
		switch row.Status {
		case model.StatusPending:
			c.Pending += row.Count
		case model.StatusCompleted:
			c.Completed += row.Count
		case model.StatusMissed:
			c.Missed += row.Count
		}
		out[row.UserID] = c
	}
	return out, nil
}

func (r *TaskRepository) SetActive(ctx context.Context, taskID uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("set task active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CascadeActive applies active to the template's pending instances dated on
// or after fromDate. Past and finished instances are untouched.
func (r *TaskRepository) CascadeActive(ctx context.Context, templateID uint, active bool, fromDate string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("parent_task_id = ? AND status = ? AND task_date >= ?", templateID, model.StatusPending, fromDate).
		Update("is_active", active)
	if res.Error != nil {
		return 0, fmt.Errorf("cascade active: %w", res.Error)
	}
	return res.RowsAffected, nil
}
