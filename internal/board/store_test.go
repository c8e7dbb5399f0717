package board

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory BoardStore and TaskStore.
type memStore struct {
	mu      sync.Mutex
	columns []models.Column
	cards   map[uint64]models.Card
	tasks   map[uint64]models.Task

	listErr   error
	updateErr error
	// failCard makes updates of that card fail
	failCard uint64

	cardUpdates []repository.CardUpdate
	batches     int
	taskUpdates []repository.TaskFields
}

func newMemStore() *memStore {
	return &memStore{cards: make(map[uint64]models.Card), tasks: make(map[uint64]models.Task)}
}

func (m *memStore) addColumn(projectID, id uint64, name string, position int64) {
	m.columns = append(m.columns, models.Column{ID: id, ProjectID: projectID, Name: name, Position: position})
}

func (m *memStore) addCard(projectID, columnID, id uint64, title string, position int64) {
	m.cards[id] = models.Card{
		ID:        id,
		ProjectID: projectID,
		ColumnID:  columnID,
		Title:     title,
		Tags:      []string{"tag-" + title},
		Priority:  models.PriorityMedium,
		Position:  position,
	}
}

func (m *memStore) ListColumns(_ context.Context, projectID uint64) ([]models.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Column
	for _, c := range m.columns {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ListCards(_ context.Context, columnID uint64) ([]models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Card
	for _, c := range m.cards {
		if c.ColumnID == columnID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memStore) UpdateCard(_ context.Context, cardID uint64, fields repository.CardFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(cardID, fields)
}

func (m *memStore) UpdateCardsBatch(_ context.Context, updates []repository.CardUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	for _, u := range updates {
		if err := m.updateLocked(u.CardID, u.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) updateLocked(cardID uint64, fields repository.CardFields) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.failCard == cardID {
		return errStoreDown
	}
	card, ok := m.cards[cardID]
	if !ok {
		return errors.New("record not found")
	}
	m.cardUpdates = append(m.cardUpdates, repository.CardUpdate{CardID: cardID, Fields: fields})
	if fields.ColumnID != nil {
		card.ColumnID = *fields.ColumnID
	}
	if fields.Position != nil {
		card.Position = *fields.Position
	}
	if fields.Completed != nil {
		card.Completed = *fields.Completed
		card.CompletedAt = fields.CompletedAt
	}
	if fields.UpdatedAt != nil {
		card.UpdatedAt = *fields.UpdatedAt
	}
	m.cards[cardID] = card
	return nil
}

func (m *memStore) UpdateTask(_ context.Context, taskID uint64, fields repository.TaskFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	task, ok := m.tasks[taskID]
	if !ok {
		return errors.New("record not found")
	}
	m.taskUpdates = append(m.taskUpdates, fields)
	if fields.Status != nil {
		task.Status = *fields.Status
	}
	if fields.Completed != nil {
		task.Completed = *fields.Completed
		task.CompletedAt = fields.CompletedAt
	}
	if fields.UpdatedAt != nil {
		task.UpdatedAt = *fields.UpdatedAt
	}
	m.tasks[taskID] = task
	return nil
}

func (m *memStore) card(id uint64) models.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cards[id]
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
