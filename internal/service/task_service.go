package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

var (
	ErrNotTemplate = errors.New("service: task is not a recurring template")
	ErrIsTemplate  = errors.New("service: recurring templates cannot be completed")
)

// TemplateInput represents data required to create a recurring template.
type TemplateInput struct {
	Title           string
	Description     string
	ScheduledTime   *string
	DurationMinutes int
	// TaskDate is the first date of the series; weekly templates repeat on
	// its weekday.
	TaskDate string
	Pattern  model.RecurrencePattern
}

// TaskService wraps the task mutations the scheduler core relies on.
type TaskService struct {
	taskRepo *repository.TaskRepository
	loc      *time.Location
}

func NewTaskService(taskRepo *repository.TaskRepository, loc *time.Location) *TaskService {
	return &TaskService{taskRepo: taskRepo, loc: loc}
}

func (s *TaskService) CreateTemplate(ctx context.Context, userID uint, input TemplateInput) (*model.Task, error) {
	task := model.Task{
		UserID:            userID,
		Title:             input.Title,
		Description:       input.Description,
		ScheduledTime:     input.ScheduledTime,
		DurationMinutes:   input.DurationMinutes,
		TaskDate:          input.TaskDate,
		Status:            model.StatusPending,
		IsRecurring:       true,
		RecurrencePattern: input.Pattern,
		IsActive:          true,
	}
	if task.DurationMinutes <= 0 {
		task.DurationMinutes = 30
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Complete marks a task as done. Completing an already completed task is a
// no-op; missed tasks may still be completed late.
func (s *TaskService) Complete(ctx context.Context, userID, taskID uint, completedAt time.Time) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsTemplate() {
		return nil, ErrIsTemplate
	}
	if task.Status == model.StatusCompleted {
		return task, nil
	}
	if err := s.taskRepo.MarkCompleted(ctx, task, completedAt); err != nil {
		return nil, err
	}
	return task, nil
}

// SetRecurringActive toggles a template and applies the same flag to its
// still-pending instances dated today or later. Past and finished instances
// keep their state. It returns the number of instances changed.
func (s *TaskService) SetRecurringActive(ctx context.Context, userID, templateID uint, active bool, today time.Time) (int64, error) {
	task, err := s.taskRepo.FindByID(ctx, userID, templateID)
	if err != nil {
		return 0, err
	}
	if !task.IsTemplate() {
		return 0, ErrNotTemplate
	}
	if err := s.taskRepo.SetActive(ctx, task.ID, active); err != nil {
		return 0, err
	}
	n, err := s.taskRepo.CascadeActive(ctx, task.ID, active, model.DateOf(today.In(s.loc)))
	if err != nil {
		return 0, fmt.Errorf("template %d: %w", task.ID, err)
	}
	return n, nil
}
