package board

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
)

// Completion is the state written by a completion toggle.
type Completion struct {
	EntityID    uint64     `json:"id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Completer sets and clears completion on cards and tasks. It never touches
// positions. A repeated true call stamps completed_at again.
type Completer struct {
	cards  repository.BoardStore
	tasks  repository.TaskStore
	cache  *Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewCompleter creates a Completer. cache may be nil when no board is held in
// memory; tasks may be nil when only cards are toggled.
func NewCompleter(cards repository.BoardStore, tasks repository.TaskStore, cache *Cache, logger *zap.Logger) *Completer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{cards: cards, tasks: tasks, cache: cache, logger: logger, now: time.Now}
}

func (c *Completer) completion(id uint64, completed bool) Completion {
	now := c.now()
	out := Completion{EntityID: id, Completed: completed, UpdatedAt: now}
	if completed {
		out.CompletedAt = &now
	}
	return out
}

// SetCardCompleted toggles a card. A cached card is updated before the write
// and restored if the write fails.
func (c *Completer) SetCardCompleted(ctx context.Context, cardID uint64, completed bool) (Completion, error) {
	out := c.completion(cardID, completed)

	var (
		previous models.Card
		cached   bool
	)
	if c.cache != nil {
		cached = c.mutateCard(cardID, func(card *models.Card) {
			previous = copyCard(*card)
			applyCompletion(card, out)
		})
	}

	fields := repository.CardFields{
		Completed:   &out.Completed,
		CompletedAt: out.CompletedAt,
		UpdatedAt:   &out.UpdatedAt,
	}
	if err := c.cards.UpdateCard(ctx, cardID, fields); err != nil {
		c.logger.Error("card completion failed",
			zap.Uint64("card_id", cardID),
			zap.Bool("completed", completed),
			zap.Error(err),
		)
		if cached {
			c.mutateCard(cardID, func(card *models.Card) {
				card.Completed = previous.Completed
				card.CompletedAt = previous.CompletedAt
				card.UpdatedAt = previous.UpdatedAt
			})
		}
		return Completion{}, &PersistError{Op: "complete", EntityID: cardID, Change: out, Err: err}
	}
	return out, nil
}

// SetTaskCompleted toggles a task and moves its status along with it.
func (c *Completer) SetTaskCompleted(ctx context.Context, taskID uint64, completed bool) (Completion, error) {
	if c.tasks == nil {
		return Completion{}, invalid("task", taskID, "no task store")
	}
	out := c.completion(taskID, completed)

	status := models.TaskStatusPending
	if completed {
		status = models.TaskStatusCompleted
	}
	fields := repository.TaskFields{
		Status:      &status,
		Completed:   &out.Completed,
		CompletedAt: out.CompletedAt,
		UpdatedAt:   &out.UpdatedAt,
	}
	if err := c.tasks.UpdateTask(ctx, taskID, fields); err != nil {
		c.logger.Error("task completion failed",
			zap.Uint64("task_id", taskID),
			zap.Bool("completed", completed),
			zap.Error(err),
		)
		return Completion{}, &PersistError{Op: "complete", EntityID: taskID, Change: out, Err: err}
	}
	return out, nil
}

func (c *Completer) mutateCard(cardID uint64, fn func(*models.Card)) bool {
	cache := c.cache
	cache.mu.Lock()
	ok := cache.updateCardLocked(cardID, fn)
	var state State
	if ok {
		state = cache.stateLocked()
	}
	cache.mu.Unlock()

	if ok {
		cache.notify(state)
	}
	return ok
}

func applyCompletion(card *models.Card, out Completion) {
	card.Completed = out.Completed
	card.CompletedAt = nil
	if out.CompletedAt != nil {
		at := *out.CompletedAt
		card.CompletedAt = &at
	}
	card.UpdatedAt = out.UpdatedAt
}
