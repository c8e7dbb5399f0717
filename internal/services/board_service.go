package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/project-board-api/internal/board"
	"github.com/yukikurage/project-board-api/internal/constants"
	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/realtime"
	"github.com/yukikurage/project-board-api/internal/repository"
)

var (
	ErrColumnNotFound         = errors.New("column not found")
	ErrColumnNotEmpty         = errors.New("column still has cards")
	ErrInvalidColumnName      = errors.New("column name cannot be empty")
	ErrCardNotFound           = errors.New("card not found")
	ErrInvalidPriority        = errors.New("priority must be one of low, medium, high, urgent")
	ErrInvalidAssignee        = errors.New("assignee is not a member of the project")
	ErrAISuggestionsFailed    = errors.New("AI service failed to suggest cards")
	ErrAINoCardsSuggested     = errors.New("AI did not suggest any cards")
	ErrSuggestionTextRequired = errors.New("text is required")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
)

// boardSession is the in-memory board of one project.
type boardSession struct {
	cache     *board.Cache
	engine    *board.Engine
	completer *board.Completer
}

// BoardService serves kanban boards. Each project gets one board.Cache shared
// by every request touching that project.
type BoardService struct {
	boards    repository.BoardRepository
	projects  repository.ProjectRepository
	publisher Publisher
	ai        CardSuggester
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[uint64]*boardSession
}

// NewBoardService creates a BoardService. publisher and ai may be nil.
func NewBoardService(boards repository.BoardRepository, projects repository.ProjectRepository, publisher Publisher, ai CardSuggester, logger *zap.Logger) *BoardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardService{
		boards:    boards,
		projects:  projects,
		publisher: publisher,
		ai:        ai,
		logger:    logger,
		sessions:  make(map[uint64]*boardSession),
	}
}

// session returns the project's board, loading it on first use.
func (s *BoardService) session(ctx context.Context, projectID uint64) (*boardSession, error) {
	s.mu.Lock()
	sess, ok := s.sessions[projectID]
	if !ok {
		cache := board.NewCache(projectID, s.boards, s.logger)
		sess = &boardSession{
			cache:     cache,
			engine:    board.NewEngine(cache, s.boards, s.logger),
			completer: board.NewCompleter(s.boards, nil, cache, s.logger),
		}
		if s.publisher != nil {
			cache.OnStateChange(func(state board.State) {
				s.publisher.Publish(realtime.Message{
					Type:      realtime.TypeBoardState,
					ProjectID: state.ProjectID,
					Data:      state.Lanes(),
				})
			})
		}
		s.sessions[projectID] = sess
	}
	s.mu.Unlock()

	if !sess.cache.Loaded() {
		if _, err := sess.cache.Load(ctx); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// reload refreshes a board after a structural change. Failures only leave the
// board stale, so they are logged.
func (s *BoardService) reload(ctx context.Context, sess *boardSession) {
	if _, err := sess.cache.Load(ctx); err != nil {
		s.logger.Warn("board reload failed", zap.Uint64("project_id", sess.cache.ProjectID()), zap.Error(err))
	}
}

// GetBoard returns the project's columns with their ordered cards. refresh
// forces a reload from the store.
func (s *BoardService) GetBoard(ctx context.Context, projectID uint64, refresh bool) ([]board.Lane, error) {
	sess, err := s.session(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if refresh {
		if _, err := sess.cache.Load(ctx); err != nil {
			return nil, err
		}
	}
	return sess.cache.State().Lanes(), nil
}

// Forget drops the in-memory board of a project.
func (s *BoardService) Forget(projectID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, projectID)
}

// CreateColumn appends a column to the board.
func (s *BoardService) CreateColumn(ctx context.Context, projectID uint64, name string) (*models.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidColumnName
	}
	sess, err := s.session(ctx, projectID)
	if err != nil {
		return nil, err
	}

	columns := sess.cache.Columns()
	position, err := s.columnPosition(ctx, columns, len(columns))
	if err != nil {
		return nil, err
	}

	column := &models.Column{ProjectID: projectID, Name: name, Position: position}
	if err := s.boards.CreateColumn(ctx, column); err != nil {
		return nil, fmt.Errorf("failed to create column: %w", err)
	}
	s.reload(ctx, sess)
	return column, nil
}

// RenameColumn changes a column's name.
func (s *BoardService) RenameColumn(ctx context.Context, projectID, columnID uint64, name string) (*models.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidColumnName
	}
	sess, column, err := s.findColumn(ctx, projectID, columnID)
	if err != nil {
		return nil, err
	}
	if column.Name == name {
		return &column, nil
	}

	if err := s.boards.UpdateColumn(ctx, columnID, repository.ColumnFields{Name: &name}); err != nil {
		return nil, fmt.Errorf("failed to rename column: %w", err)
	}
	column.Name = name
	s.reload(ctx, sess)
	return &column, nil
}

// MoveColumn places a column at index among the other columns.
func (s *BoardService) MoveColumn(ctx context.Context, projectID, columnID uint64, index int) ([]board.Lane, error) {
	sess, _, err := s.findColumn(ctx, projectID, columnID)
	if err != nil {
		return nil, err
	}

	others := slices.DeleteFunc(sess.cache.Columns(), func(c models.Column) bool { return c.ID == columnID })
	if index < 0 || index > len(others) {
		index = len(others)
	}
	position, err := s.columnPosition(ctx, others, index)
	if err != nil {
		return nil, err
	}
	if err := s.boards.UpdateColumn(ctx, columnID, repository.ColumnFields{Position: &position}); err != nil {
		return nil, fmt.Errorf("failed to move column: %w", err)
	}

	s.reload(ctx, sess)
	return sess.cache.State().Lanes(), nil
}

// columnPosition finds a position for a column at index, renumbering the
// other columns when there is no gap.
func (s *BoardService) columnPosition(ctx context.Context, others []models.Column, index int) (int64, error) {
	positions := make([]int64, len(others))
	for i, c := range others {
		positions[i] = c.Position
	}
	if pos, ok := board.PositionAt(positions, index); ok {
		return pos, nil
	}

	fresh := board.Renumbered(len(others) + 1)
	for i, c := range others {
		slot := i
		if i >= index {
			slot++
		}
		if err := s.boards.UpdateColumn(ctx, c.ID, repository.ColumnFields{Position: &fresh[slot]}); err != nil {
			return 0, fmt.Errorf("failed to renumber columns: %w", err)
		}
	}
	return fresh[index], nil
}

// DeleteColumn removes an empty column.
func (s *BoardService) DeleteColumn(ctx context.Context, projectID, columnID uint64) error {
	sess, _, err := s.findColumn(ctx, projectID, columnID)
	if err != nil {
		return err
	}

	count, err := s.boards.CountCards(ctx, columnID)
	if err != nil {
		return fmt.Errorf("failed to count cards: %w", err)
	}
	if count > 0 {
		return ErrColumnNotEmpty
	}

	if err := s.boards.DeleteColumn(ctx, columnID); err != nil {
		return fmt.Errorf("failed to delete column: %w", err)
	}
	s.reload(ctx, sess)
	return nil
}

func (s *BoardService) findColumn(ctx context.Context, projectID, columnID uint64) (*boardSession, models.Column, error) {
	sess, err := s.session(ctx, projectID)
	if err != nil {
		return nil, models.Column{}, err
	}
	for _, c := range sess.cache.Columns() {
		if c.ID == columnID {
			return sess, c, nil
		}
	}
	return nil, models.Column{}, ErrColumnNotFound
}

// CreateCardInput represents input for creating a card
type CreateCardInput struct {
	ColumnID    uint64
	Index       *int
	Title       string
	Description string
	Tags        []string
	Priority    models.Priority
	AssigneeID  *uint64
	DueDate     *time.Time
	CreatorID   uint64
}

// CreateCard inserts a card at Index in its column, or appends it.
func (s *BoardService) CreateCard(ctx context.Context, projectID uint64, input CreateCardInput) (*models.Card, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if err := s.checkAssignee(ctx, projectID, input.AssigneeID); err != nil {
		return nil, err
	}

	sess, _, err := s.findColumn(ctx, projectID, input.ColumnID)
	if err != nil {
		return nil, err
	}

	index := -1
	if input.Index != nil {
		index = *input.Index
	}
	placement, err := sess.engine.Place(input.ColumnID, index)
	if err != nil {
		return nil, err
	}
	if len(placement.Renumber) > 0 {
		if err := s.boards.UpdateCardsBatch(ctx, placement.Renumber); err != nil {
			s.reload(ctx, sess)
			return nil, &board.PersistError{Op: "renumber", EntityID: input.ColumnID, Change: placement, Err: err}
		}
	}

	tags := cleanTags(input.Tags)
	card := &models.Card{
		ProjectID:   projectID,
		ColumnID:    input.ColumnID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Tags:        tags,
		Priority:    priority,
		AssigneeID:  input.AssigneeID,
		DueDate:     input.DueDate,
		Position:    placement.Position,
		CreatorID:   input.CreatorID,
	}
	if err := s.boards.CreateCard(ctx, card); err != nil {
		if len(placement.Renumber) > 0 {
			// the renumber is already stored
			s.reload(ctx, sess)
		}
		return nil, fmt.Errorf("failed to create card: %w", err)
	}
	if err := sess.engine.Insert(*card, placement); err != nil {
		s.reload(ctx, sess)
	}
	return card, nil
}

// UpdateCardInput holds editable card details. Nil fields are kept.
type UpdateCardInput struct {
	Title         *string
	Description   *string
	Tags          *[]string
	Priority      *models.Priority
	AssigneeID    *uint64
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
}

// UpdateCard changes a card's details. Placement and completion have their
// own operations.
func (s *BoardService) UpdateCard(ctx context.Context, projectID, cardID uint64, input UpdateCardInput) (*models.Card, error) {
	sess, current, err := s.findCard(ctx, projectID, cardID)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	fields := repository.CardFields{
		Priority:      input.Priority,
		ClearAssignee: input.ClearAssignee,
		ClearDueDate:  input.ClearDueDate,
		UpdatedAt:     &now,
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		fields.Title = &title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		fields.Description = &description
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if input.Tags != nil {
		tags := cleanTags(*input.Tags)
		fields.Tags = &tags
	}
	if !input.ClearAssignee && input.AssigneeID != nil {
		if err := s.checkAssignee(ctx, projectID, input.AssigneeID); err != nil {
			return nil, err
		}
		fields.AssigneeID = input.AssigneeID
	}
	if !input.ClearDueDate {
		fields.DueDate = input.DueDate
	}

	if err := s.boards.UpdateCard(ctx, cardID, fields); err != nil {
		return nil, &board.PersistError{Op: "update", EntityID: cardID, Change: fields, Err: err}
	}

	apply := func(card *models.Card) {
		if fields.Title != nil {
			card.Title = *fields.Title
		}
		if fields.Description != nil {
			card.Description = *fields.Description
		}
		if fields.Tags != nil {
			card.Tags = *fields.Tags
		}
		if fields.Priority != nil {
			card.Priority = *fields.Priority
		}
		switch {
		case fields.ClearAssignee:
			card.AssigneeID = nil
		case fields.AssigneeID != nil:
			card.AssigneeID = fields.AssigneeID
		}
		switch {
		case fields.ClearDueDate:
			card.DueDate = nil
		case fields.DueDate != nil:
			card.DueDate = fields.DueDate
		}
		card.UpdatedAt = now
	}
	sess.cache.UpdateCard(cardID, apply)
	apply(&current)
	return &current, nil
}

// DeleteCard removes a card from the board.
func (s *BoardService) DeleteCard(ctx context.Context, projectID, cardID uint64) error {
	sess, _, err := s.findCard(ctx, projectID, cardID)
	if err != nil {
		return err
	}
	if err := s.boards.DeleteCard(ctx, cardID); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	sess.cache.RemoveCard(cardID)
	return nil
}

// MoveCard moves a card within or across columns and persists the new order.
func (s *BoardService) MoveCard(ctx context.Context, projectID uint64, req board.MoveRequest) (*board.Plan, error) {
	sess, err := s.session(ctx, projectID)
	if err != nil {
		return nil, err
	}
	plan, err := sess.engine.Move(ctx, req)
	var persistErr *board.PersistError
	if errors.As(err, &persistErr) {
		// part of a renumber batch may have been stored
		s.reload(ctx, sess)
	}
	return plan, err
}

// SetCardCompleted toggles a card's completion.
func (s *BoardService) SetCardCompleted(ctx context.Context, projectID, cardID uint64, completed bool) (board.Completion, error) {
	sess, _, err := s.findCard(ctx, projectID, cardID)
	if err != nil {
		return board.Completion{}, err
	}
	return sess.completer.SetCardCompleted(ctx, cardID, completed)
}

// SuggestCards asks the AI service for cards and appends them to a column.
func (s *BoardService) SuggestCards(ctx context.Context, projectID, columnID, creatorID uint64, text string) ([]models.Card, error) {
	if s.ai == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrSuggestionTextRequired
	}
	if _, _, err := s.findColumn(ctx, projectID, columnID); err != nil {
		return nil, err
	}

	suggestions, err := s.ai.SuggestCards(ctx, text)
	if err != nil {
		s.logger.Error("AI card suggestion failed", zap.Uint64("project_id", projectID), zap.Error(err))
		return nil, ErrAISuggestionsFailed
	}
	if len(suggestions) == 0 {
		return nil, ErrAINoCardsSuggested
	}
	if len(suggestions) > constants.MaxAIGeneratedCards {
		suggestions = suggestions[:constants.MaxAIGeneratedCards]
	}

	created := make([]models.Card, 0, len(suggestions))
	for _, sug := range suggestions {
		priority := sug.Priority
		if !priority.Valid() {
			priority = models.PriorityMedium
		}
		card, err := s.CreateCard(ctx, projectID, CreateCardInput{
			ColumnID:    columnID,
			Title:       sug.Title,
			Description: sug.Description,
			Tags:        sug.Tags,
			Priority:    priority,
			DueDate:     sug.DueDate,
			CreatorID:   creatorID,
		})
		if errors.Is(err, ErrTitleRequired) {
			continue
		}
		if err != nil {
			return created, err
		}
		created = append(created, *card)
	}
	if len(created) == 0 {
		return nil, ErrAINoCardsSuggested
	}
	return created, nil
}

// findCard resolves a card of the project, reloading the board once when the
// card was created elsewhere.
func (s *BoardService) findCard(ctx context.Context, projectID, cardID uint64) (*boardSession, models.Card, error) {
	sess, err := s.session(ctx, projectID)
	if err != nil {
		return nil, models.Card{}, err
	}
	if card, _, _, ok := sess.cache.Card(cardID); ok {
		return sess, card, nil
	}

	stored, err := s.boards.FindCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.Card{}, ErrCardNotFound
		}
		return nil, models.Card{}, fmt.Errorf("failed to find card: %w", err)
	}
	if stored.ProjectID != projectID {
		return nil, models.Card{}, ErrCardNotFound
	}
	if _, err := sess.cache.Load(ctx); err != nil {
		return nil, models.Card{}, err
	}
	if card, _, _, ok := sess.cache.Card(cardID); ok {
		return sess, card, nil
	}
	return nil, models.Card{}, ErrCardNotFound
}

func (s *BoardService) checkAssignee(ctx context.Context, projectID uint64, assigneeID *uint64) error {
	if assigneeID == nil {
		return nil
	}
	if _, err := s.projects.FindMember(ctx, projectID, *assigneeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidAssignee
		}
		return fmt.Errorf("failed to verify assignee: %w", err)
	}
	return nil
}

// cleanTags trims tags and drops blanks and duplicates, keeping order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
