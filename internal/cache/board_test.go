package cache

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
)

// stubRepository counts reads and serves a fixed board. Methods not
// overridden panic through the nil embedded interface.
type stubRepository struct {
	repository.BoardRepository
	columns     []models.Column
	cards       map[uint64][]models.Card
	columnReads int
	cardReads   int
	findCalls   int
	updateErr   error
	// duringRead runs once, after a listing was read and before it returns
	duringRead func()
}

func newStub() *stubRepository {
	return &stubRepository{
		columns: []models.Column{
			{ID: 10, ProjectID: 1, Name: "To Do", Position: 100},
			{ID: 20, ProjectID: 1, Name: "Done", Position: 200},
		},
		cards: map[uint64][]models.Card{
			10: {{ID: 1, ProjectID: 1, ColumnID: 10, Title: "Write", Tags: []string{"docs"}, Priority: models.PriorityHigh, Position: 100}},
			20: {{ID: 2, ProjectID: 1, ColumnID: 20, Title: "Ship", Tags: []string{}, Priority: models.PriorityLow, Position: 100}},
		},
	}
}

func (s *stubRepository) ListColumns(_ context.Context, projectID uint64) ([]models.Column, error) {
	s.columnReads++
	return s.columns, nil
}

func (s *stubRepository) ListCards(_ context.Context, columnID uint64) ([]models.Card, error) {
	s.cardReads++
	cards := slices.Clone(s.cards[columnID])
	if hook := s.duringRead; hook != nil {
		s.duringRead = nil
		hook()
	}
	return cards, nil
}

func (s *stubRepository) FindCard(_ context.Context, id uint64) (*models.Card, error) {
	s.findCalls++
	for _, list := range s.cards {
		for _, c := range list {
			if c.ID == id {
				return &c, nil
			}
		}
	}
	return nil, errors.New("record not found")
}

func (s *stubRepository) FindColumn(_ context.Context, id uint64) (*models.Column, error) {
	for _, c := range s.columns {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, errors.New("record not found")
}

func (s *stubRepository) UpdateCard(context.Context, uint64, repository.CardFields) error {
	return s.updateErr
}

func (s *stubRepository) UpdateCardsBatch(context.Context, []repository.CardUpdate) error {
	return s.updateErr
}

func (s *stubRepository) UpdateColumn(context.Context, uint64, repository.ColumnFields) error {
	return nil
}

func (s *stubRepository) CreateCard(_ context.Context, card *models.Card) error {
	card.ID = 99
	return nil
}

func newTestCache(t *testing.T, base repository.BoardRepository) (*BoardRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewBoardRepository(base, client, time.Minute, nil), mr
}

func TestListColumnsMissThenHit(t *testing.T) {
	stub := newStub()
	repo, mr := newTestCache(t, stub)
	ctx := context.Background()

	columns, err := repo.ListColumns(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, stub.columns, columns)

	ttl := mr.TTL(columnsKey(1))
	assert.True(t, ttl > 0 && ttl <= time.Minute, "unexpected TTL %v", ttl)

	cached, err := repo.ListColumns(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, stub.columns, cached)
	assert.Equal(t, 1, stub.columnReads)
}

func TestListCardsIndexesColumns(t *testing.T) {
	stub := newStub()
	repo, mr := newTestCache(t, stub)
	ctx := context.Background()

	cards, err := repo.ListCards(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, stub.cards[10], cards)

	indexed, err := mr.Get(cardColumnKey(1))
	require.NoError(t, err)
	assert.Equal(t, "10", indexed)

	_, err = repo.ListCards(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.cardReads)
}

func TestCorruptEntryFallsBackToBase(t *testing.T) {
	stub := newStub()
	repo, mr := newTestCache(t, stub)
	require.NoError(t, mr.Set(cardsKey(20), "{not json"))

	cards, err := repo.ListCards(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, stub.cards[20], cards)
	assert.Equal(t, 1, stub.cardReads)
}

func TestCrossColumnUpdateEvictsBothColumns(t *testing.T) {
	stub := newStub()
	repo, mr := newTestCache(t, stub)
	ctx := context.Background()

	_, err := repo.ListCards(ctx, 10)
	require.NoError(t, err)
	_, err = repo.ListCards(ctx, 20)
	require.NoError(t, err)

	dest := uint64(20)
	pos := int64(200)
	require.NoError(t, repo.UpdateCard(ctx, 1, repository.CardFields{ColumnID: &dest, Position: &pos}))

	assert.False(t, mr.Exists(cardsKey(10)))
	assert.False(t, mr.Exists(cardsKey(20)))
	assert.False(t, mr.Exists(cardColumnKey(1)))
	assert.Zero(t, stub.findCalls, "column resolved from the index")
}

func TestFailedUpdateStillEvicts(t *testing.T) {
	stub := newStub()
	stub.updateErr = errors.New("boom")
	repo, mr := newTestCache(t, stub)
	ctx := context.Background()

	_, err := repo.ListCards(ctx, 10)
	require.NoError(t, err)

	pos := int64(5)
	err = repo.UpdateCardsBatch(ctx, []repository.CardUpdate{{CardID: 1, Fields: repository.CardFields{Position: &pos}}})
	assert.Error(t, err)
	assert.False(t, mr.Exists(cardsKey(10)))
}

func TestUnindexedCardFallsBackToFind(t *testing.T) {
	stub := newStub()
	repo, mr := newTestCache(t, stub)
	ctx := context.Background()
	require.NoError(t, mr.Set(cardsKey(20), "[]"))

	done := true
	require.NoError(t, repo.UpdateCard(ctx, 2, repository.CardFields{Completed: &done}))

	assert.Equal(t, 1, stub.findCalls)
	assert.False(t, mr.Exists(cardsKey(20)))
}

func TestColumnWritesEvictProjectListing(t *testing.T) {
	stub := newStub()
	repo, mr := newTestCache(t, stub)
	ctx := context.Background()

	_, err := repo.ListColumns(ctx, 1)
	require.NoError(t, err)

	name := "Doing"
	require.NoError(t, repo.UpdateColumn(ctx, 10, repository.ColumnFields{Name: &name}))
	assert.False(t, mr.Exists(columnsKey(1)))

	require.NoError(t, mr.Set(cardsKey(10), "[]"))
	card := &models.Card{ProjectID: 1, ColumnID: 10, Title: "New"}
	require.NoError(t, repo.CreateCard(ctx, card))
	assert.False(t, mr.Exists(cardsKey(10)))
}

func TestNilClientPassesThrough(t *testing.T) {
	stub := newStub()
	repo := NewBoardRepository(stub, nil, time.Minute, nil)
	ctx := context.Background()

	_, err := repo.ListColumns(ctx, 1)
	require.NoError(t, err)
	_, err = repo.ListColumns(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, stub.columnReads)
}

func TestWriteDuringReadDropsStaleFill(t *testing.T) {
	stub := newStub()
	repo, mr := newTestCache(t, stub)
	ctx := context.Background()

	title := "Rewrite"
	stub.duringRead = func() {
		stub.cards[10][0].Title = title
		require.NoError(t, repo.UpdateCard(ctx, 1, repository.CardFields{Title: &title}))
	}

	stale, err := repo.ListCards(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Write", stale[0].Title)
	assert.False(t, mr.Exists(cardsKey(10)))
	assert.False(t, mr.Exists(cardColumnKey(1)))

	fresh, err := repo.ListCards(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, title, fresh[0].Title)
	assert.Equal(t, 2, stub.cardReads)
	assert.True(t, mr.Exists(cardsKey(10)))
}
