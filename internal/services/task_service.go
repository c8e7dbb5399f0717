package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/project-board-api/internal/board"
	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTitleRequired     = errors.New("title is required")
	ErrTitleEmpty        = errors.New("title cannot be empty")
	ErrInvalidTaskStatus = errors.New("status must be one of pending, in-progress, completed, cancelled")
	ErrInvalidClockTime  = errors.New("times must use the HH:MM format")
	ErrInvalidTimeRange  = errors.New("end time must be after start time")
	ErrInvalidDateRange  = errors.New("date_from must not be after date_to")
)

const clockLayout = "15:04"

// TaskService handles calendar task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	completer *board.Completer
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, logger *zap.Logger) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		completer: board.NewCompleter(nil, taskRepo, nil, logger),
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Status   *models.TaskStatus
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	TaskDate    time.Time
	StartTime   *string
	EndTime     *string
	Status      models.TaskStatus
	CreatorID   uint64
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	TaskDate       *time.Time
	StartTime      *string
	ClearStartTime bool
	EndTime        *string
	ClearEndTime   bool
	Status         *models.TaskStatus
}

// ListTasks lists a project's tasks ordered by date and start time. Both
// date bounds are inclusive.
func (s *TaskService) ListTasks(ctx context.Context, projectID uint64, input ListTasksInput) ([]models.Task, error) {
	if input.DateFrom != nil && input.DateTo != nil && input.DateFrom.After(*input.DateTo) {
		return nil, ErrInvalidDateRange
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, ErrInvalidTaskStatus
	}

	filter := repository.TaskFilter{ProjectID: projectID, Status: input.Status}
	if input.DateFrom != nil {
		from := truncateDay(*input.DateFrom)
		filter.DateFrom = &from
	}
	if input.DateTo != nil {
		// the store treats DateTo as exclusive
		to := truncateDay(*input.DateTo).AddDate(0, 0, 1)
		filter.DateTo = &to
	}

	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask schedules a new task
func (s *TaskService) CreateTask(ctx context.Context, projectID uint64, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidTaskStatus
	}
	if err := checkClockRange(input.StartTime, input.EndTime); err != nil {
		return nil, err
	}

	task := &models.Task{
		ProjectID:   projectID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		TaskDate:    truncateDay(input.TaskDate),
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Status:      status,
		CreatorID:   input.CreatorID,
	}
	if status == models.TaskStatusCompleted {
		now := timeNow()
		task.Completed = true
		task.CompletedAt = &now
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// GetTask returns a task of the project
func (s *TaskService) GetTask(ctx context.Context, projectID, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.ProjectID != projectID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// UpdateTask updates a task. Moving the status into or out of completed
// keeps the completion fields in step.
func (s *TaskService) UpdateTask(ctx context.Context, projectID, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.GetTask(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	fields := repository.TaskFields{
		ClearStartTime: input.ClearStartTime,
		ClearEndTime:   input.ClearEndTime,
		UpdatedAt:      &now,
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		fields.Title = &title
		task.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		fields.Description = &description
		task.Description = description
	}
	if input.TaskDate != nil {
		day := truncateDay(*input.TaskDate)
		fields.TaskDate = &day
		task.TaskDate = day
	}

	switch {
	case input.ClearStartTime:
		task.StartTime = nil
	case input.StartTime != nil:
		fields.StartTime = input.StartTime
		task.StartTime = input.StartTime
	}
	switch {
	case input.ClearEndTime:
		task.EndTime = nil
	case input.EndTime != nil:
		fields.EndTime = input.EndTime
		task.EndTime = input.EndTime
	}
	if err := checkClockRange(task.StartTime, task.EndTime); err != nil {
		return nil, err
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidTaskStatus
		}
		fields.Status = input.Status
		task.Status = *input.Status

		completed := *input.Status == models.TaskStatusCompleted
		if completed != task.Completed {
			fields.Completed = &completed
			task.Completed = completed
			task.CompletedAt = nil
			if completed {
				fields.CompletedAt = &now
				task.CompletedAt = &now
			}
		}
	}

	if err := s.taskRepo.UpdateTask(ctx, taskID, fields); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	task.UpdatedAt = now
	return task, nil
}

// DeleteTask deletes a task
func (s *TaskService) DeleteTask(ctx context.Context, projectID, taskID uint64) error {
	if _, err := s.GetTask(ctx, projectID, taskID); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// SetTaskCompleted toggles a task's completion
func (s *TaskService) SetTaskCompleted(ctx context.Context, projectID, taskID uint64, completed bool) (board.Completion, error) {
	if _, err := s.GetTask(ctx, projectID, taskID); err != nil {
		return board.Completion{}, err
	}
	return s.completer.SetTaskCompleted(ctx, taskID, completed)
}

func checkClockRange(start, end *string) error {
	var from, to time.Time
	var err error
	if start != nil {
		if from, err = time.Parse(clockLayout, *start); err != nil {
			return ErrInvalidClockTime
		}
	}
	if end != nil {
		if to, err = time.Parse(clockLayout, *end); err != nil {
			return ErrInvalidClockTime
		}
	}
	if start != nil && end != nil && !to.After(from) {
		return ErrInvalidTimeRange
	}
	return nil
}

// truncateDay keeps the calendar date of t at midnight UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
