package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
)

const (
	upcomingWindow = 7 * 24 * time.Hour
	upcomingLimit  = 5
)

// Dashboard summarises a project.
type Dashboard struct {
	TotalTasks     int           `json:"total_tasks"`
	CompletedTasks int           `json:"completed_tasks"`
	UpcomingTasks  int           `json:"upcoming_tasks"`
	OverdueTasks   int           `json:"overdue_tasks"`
	TotalCards     int           `json:"total_cards"`
	CompletedCards int           `json:"completed_cards"`
	Notes          int64         `json:"notes"`
	Links          int64         `json:"links"`
	NextTasks      []models.Task `json:"next_tasks"`
}

// DashboardService computes project summaries.
type DashboardService struct {
	taskRepo  repository.TaskRepository
	boardRepo repository.BoardRepository
	noteRepo  repository.NoteRepository
	linkRepo  repository.LinkRepository
}

func NewDashboardService(taskRepo repository.TaskRepository, boardRepo repository.BoardRepository, noteRepo repository.NoteRepository, linkRepo repository.LinkRepository) *DashboardService {
	return &DashboardService{taskRepo: taskRepo, boardRepo: boardRepo, noteRepo: noteRepo, linkRepo: linkRepo}
}

// GetDashboard counts tasks, cards, notes and links. Upcoming covers the
// next seven days from today; overdue is anything before today. Both skip
// completed and cancelled tasks.
func (s *DashboardService) GetDashboard(ctx context.Context, projectID uint64) (*Dashboard, error) {
	tasks, err := s.taskRepo.List(ctx, repository.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	cards, err := s.boardRepo.ListProjectCards(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	_, notes, err := s.noteRepo.List(ctx, projectID, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}
	_, links, err := s.linkRepo.List(ctx, projectID, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}

	today := truncateDay(timeNow())
	horizon := today.Add(upcomingWindow)

	d := &Dashboard{
		TotalTasks: len(tasks),
		TotalCards: len(cards),
		Notes:      notes,
		Links:      links,
		NextTasks:  []models.Task{},
	}
	for _, t := range tasks {
		if t.Completed {
			d.CompletedTasks++
			continue
		}
		if t.Status == models.TaskStatusCancelled {
			continue
		}
		day := truncateDay(t.TaskDate)
		switch {
		case day.Before(today):
			d.OverdueTasks++
		case day.Before(horizon):
			d.UpcomingTasks++
			if len(d.NextTasks) < upcomingLimit {
				d.NextTasks = append(d.NextTasks, t)
			}
		}
	}
	for _, c := range cards {
		if c.Completed {
			d.CompletedCards++
		}
	}
	return d, nil
}
