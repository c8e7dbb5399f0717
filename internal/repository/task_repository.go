package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-board-api/internal/database"
	"github.com/yukikurage/project-board-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves a project's tasks ordered by date and start time
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).Scopes(database.InProject(filter.ProjectID))
	if filter.DateFrom != nil {
		query = query.Where("task_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("task_date < ?", *filter.DateTo)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.
		Order("task_date ASC").
		Order("CASE WHEN start_time IS NULL THEN 1 ELSE 0 END, start_time ASC").
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListScheduledOn retrieves tasks of every project scheduled on the given day
func (r *GormTaskRepository) ListScheduledOn(ctx context.Context, day time.Time) ([]models.Task, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Where("task_date >= ? AND task_date < ?", start, end).
		Order("project_id ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask writes the set fields of a single task
func (r *GormTaskRepository) UpdateTask(ctx context.Context, taskID uint64, fields TaskFields) error {
	values := fields.values()
	if len(values) == 0 {
		return nil
	}

	return updateByID(ctx, r.db, &models.Task{}, taskID, values)
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Task{}, id).Error
}

func (f TaskFields) values() map[string]any {
	values := map[string]any{}
	if f.Title != nil {
		values["title"] = *f.Title
	}
	if f.Description != nil {
		values["description"] = *f.Description
	}
	if f.TaskDate != nil {
		values["task_date"] = *f.TaskDate
	}
	if f.ClearStartTime {
		values["start_time"] = nil
	} else if f.StartTime != nil {
		values["start_time"] = *f.StartTime
	}
	if f.ClearEndTime {
		values["end_time"] = nil
	} else if f.EndTime != nil {
		values["end_time"] = *f.EndTime
	}
	if f.Status != nil {
		values["status"] = string(*f.Status)
	}
	if f.Completed != nil {
		values["completed"] = *f.Completed
		if f.CompletedAt != nil {
			values["completed_at"] = *f.CompletedAt
		} else {
			values["completed_at"] = nil
		}
	}
	if f.UpdatedAt != nil {
		values["updated_at"] = *f.UpdatedAt
	}
	return values
}
