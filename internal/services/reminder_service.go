package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
)

// Reminder lists the tasks of one project due on a day, addressed to the
// project owner.
type Reminder struct {
	To          string
	ProjectID   uint64
	ProjectName string
	Tasks       []models.Task
}

// Notifier delivers reminders.
type Notifier interface {
	Notify(ctx context.Context, reminder Reminder) error
}

// LogNotifier writes reminders to the log instead of delivering them.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, r Reminder) error {
	titles := make([]string, len(r.Tasks))
	for i, t := range r.Tasks {
		titles[i] = t.Title
	}
	n.Logger.Info("task reminder",
		zap.String("to", r.To),
		zap.Uint64("project_id", r.ProjectID),
		zap.String("project", r.ProjectName),
		zap.Strings("tasks", titles),
	)
	return nil
}

// ReminderService sends a reminder per project for tasks scheduled today.
type ReminderService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	notifier    Notifier
	logger      *zap.Logger
}

func NewReminderService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, userRepo repository.UserRepository, notifier Notifier, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// SendDueToday notifies owners of active projects about open tasks
// scheduled on the current day and returns how many reminders went out. A
// failed delivery is logged and the sweep moves on.
func (s *ReminderService) SendDueToday(ctx context.Context) (int, error) {
	tasks, err := s.taskRepo.ListScheduledOn(ctx, timeNow())
	if err != nil {
		return 0, fmt.Errorf("failed to list scheduled tasks: %w", err)
	}

	byProject := make(map[uint64][]models.Task)
	var order []uint64
	for _, t := range tasks {
		if t.Completed || t.Status == models.TaskStatusCancelled {
			continue
		}
		if _, seen := byProject[t.ProjectID]; !seen {
			order = append(order, t.ProjectID)
		}
		byProject[t.ProjectID] = append(byProject[t.ProjectID], t)
	}

	sent := 0
	for _, projectID := range order {
		project, err := s.projectRepo.FindByID(ctx, projectID)
		if err != nil {
			s.logger.Warn("reminder skipped: project lookup failed", zap.Uint64("project_id", projectID), zap.Error(err))
			continue
		}
		if project.Status == models.ProjectStatusArchived {
			continue
		}
		owner, err := s.userRepo.FindByID(ctx, project.OwnerID)
		if err != nil {
			s.logger.Warn("reminder skipped: owner lookup failed", zap.Uint64("project_id", projectID), zap.Error(err))
			continue
		}

		reminder := Reminder{
			To:          owner.Email,
			ProjectID:   project.ID,
			ProjectName: project.Name,
			Tasks:       byProject[projectID],
		}
		if err := s.notifier.Notify(ctx, reminder); err != nil {
			s.logger.Error("reminder delivery failed", zap.Uint64("project_id", projectID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}
