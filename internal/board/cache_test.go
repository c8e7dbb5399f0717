package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yukikurage/project-board-api/internal/models"
)

const (
	projectID = uint64(1)
	colA      = uint64(10)
	colB      = uint64(20)

	cardX = uint64(1)
	cardY = uint64(2)
	cardZ = uint64(3)
	cardP = uint64(4)
	cardQ = uint64(5)
)

// seedStore builds A: [X@10, Y@20, Z@30] and B: [P@100, Q@200].
func seedStore() *memStore {
	store := newMemStore()
	store.addColumn(projectID, colB, "Done", 200)
	store.addColumn(projectID, colA, "To Do", 100)
	store.addCard(projectID, colA, cardX, "X", 10)
	store.addCard(projectID, colA, cardY, "Y", 20)
	store.addCard(projectID, colA, cardZ, "Z", 30)
	store.addCard(projectID, colB, cardP, "P", 100)
	store.addCard(projectID, colB, cardQ, "Q", 200)
	return store
}

func loadedCache(t *testing.T, store *memStore) *Cache {
	t.Helper()
	cache := NewCache(projectID, store, nil)
	_, err := cache.Load(context.Background())
	require.NoError(t, err)
	return cache
}

func cardIDs(cards []models.Card) []uint64 {
	ids := make([]uint64, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func TestCache_LoadSortsColumnsAndCards(t *testing.T) {
	cache := NewCache(projectID, seedStore(), nil)

	var notified []State
	cache.OnStateChange(func(s State) { notified = append(notified, s) })

	cards, err := cache.Load(context.Background())
	require.NoError(t, err)

	columns := cache.Columns()
	require.Len(t, columns, 2)
	assert.Equal(t, colA, columns[0].ID)
	assert.Equal(t, colB, columns[1].ID)

	assert.Equal(t, []uint64{cardX, cardY, cardZ}, cardIDs(cards[colA]))
	assert.Equal(t, []uint64{cardP, cardQ}, cardIDs(cards[colB]))

	require.Len(t, notified, 1)
	assert.Equal(t, cards, notified[0].Cards)
	assert.True(t, cache.Loaded())
}

func TestCache_LoadKeepsEmptyColumns(t *testing.T) {
	store := seedStore()
	store.addColumn(projectID, 30, "Archive", 300)
	cache := loadedCache(t, store)

	cards, ok := cache.Cards(30)
	assert.True(t, ok)
	assert.Empty(t, cards)
}

func TestCache_LoadFetchError(t *testing.T) {
	store := seedStore()
	store.listErr = errStoreDown
	cache := NewCache(projectID, store, nil)

	_, err := cache.Load(context.Background())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, projectID, fetchErr.ProjectID)
	assert.ErrorIs(t, err, errStoreDown)
	assert.False(t, cache.Loaded())
}

func TestCache_LoadRejectsMalformedRows(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		mutate func(*memStore)
	}{
		{"completed without timestamp", func(s *memStore) {
			c := s.cards[cardX]
			c.Completed = true
			s.cards[cardX] = c
		}},
		{"timestamp without completed", func(s *memStore) {
			c := s.cards[cardX]
			c.CompletedAt = &now
			s.cards[cardX] = c
		}},
		{"unknown priority", func(s *memStore) {
			c := s.cards[cardY]
			c.Priority = "critical"
			s.cards[cardY] = c
		}},
		{"blank title", func(s *memStore) {
			c := s.cards[cardZ]
			c.Title = "  "
			s.cards[cardZ] = c
		}},
		{"card of another project", func(s *memStore) {
			c := s.cards[cardP]
			c.ProjectID = 99
			s.cards[cardP] = c
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore()
			tt.mutate(store)
			cache := NewCache(projectID, store, nil)

			_, err := cache.Load(context.Background())

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.False(t, cache.Loaded())
		})
	}
}

func TestCache_ApplyLocalMoveNoOp(t *testing.T) {
	cache := loadedCache(t, seedStore())
	before := cache.State()

	calls := 0
	cache.OnStateChange(func(State) { calls++ })

	require.NoError(t, cache.ApplyLocalMove(cardY, colA, colA, 1))

	assert.Equal(t, before, cache.State())
	assert.Zero(t, calls)
}

func TestCache_ApplyLocalMoveAcrossColumns(t *testing.T) {
	cache := loadedCache(t, seedStore())

	var last State
	cache.OnStateChange(func(s State) { last = s })

	require.NoError(t, cache.ApplyLocalMove(cardX, colA, colB, 1))

	a, _ := cache.Cards(colA)
	b, _ := cache.Cards(colB)
	assert.Equal(t, []uint64{cardY, cardZ}, cardIDs(a))
	assert.Equal(t, []uint64{cardP, cardX, cardQ}, cardIDs(b))
	assert.Equal(t, colB, b[1].ColumnID)
	assert.Equal(t, cache.State(), last)
}

func TestCache_ApplyLocalMoveRejectsUnknownReferences(t *testing.T) {
	cache := loadedCache(t, seedStore())
	before := cache.State()

	tests := []struct {
		name     string
		card     uint64
		from, to uint64
		index    int
	}{
		{"unknown card", 42, colA, colB, 0},
		{"card in other column", cardP, colA, colB, 0},
		{"unknown destination", cardX, colA, 99, 0},
		{"index past end", cardX, colA, colB, 3},
		{"same column index past end", cardX, colA, colA, 3},
		{"negative index", cardX, colA, colB, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cache.ApplyLocalMove(tt.card, tt.from, tt.to, tt.index)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.Equal(t, before, cache.State())
		})
	}
}

func TestCache_ApplyLocalMoveLogsRejection(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cache := NewCache(projectID, seedStore(), zap.New(core))
	_, err := cache.Load(context.Background())
	require.NoError(t, err)

	err = cache.ApplyLocalMove(42, colA, colB, 0)
	require.Error(t, err)

	entries := logs.FilterMessage("board operation rejected").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "apply_local_move", fields["op"])
	assert.Equal(t, "card", fields["entity"])
	assert.Equal(t, uint64(42), fields["entity_id"])
	assert.Equal(t, projectID, fields["project_id"])
}

func TestCache_ApplyLocalMoveBeforeLoad(t *testing.T) {
	cache := NewCache(projectID, seedStore(), nil)

	err := cache.ApplyLocalMove(cardX, colA, colB, 0)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestCache_RollbackRestoresSnapshot(t *testing.T) {
	cache := loadedCache(t, seedStore())
	before := cache.State()
	snap := cache.Snapshot()

	require.NoError(t, cache.ApplyLocalMove(cardX, colA, colB, 2))
	require.NoError(t, cache.ApplyLocalMove(cardQ, colB, colA, 0))
	assert.NotEqual(t, before, cache.State())

	cache.Rollback(snap)

	assert.Equal(t, before, cache.State())
}

func TestCache_SnapshotIsDeepCopy(t *testing.T) {
	cache := loadedCache(t, seedStore())
	snap := cache.Snapshot()

	copied := snap.Cards()
	copied[colA][0].Tags[0] = "mutated"
	copied[colA][0].Title = "mutated"

	cards, _ := cache.Cards(colA)
	assert.Equal(t, "tag-X", cards[0].Tags[0])
	assert.Equal(t, "X", cards[0].Title)
	assert.Equal(t, "tag-X", snap.Cards()[colA][0].Tags[0])
}

func TestCache_OnStateChangeUnsubscribe(t *testing.T) {
	cache := loadedCache(t, seedStore())

	calls := 0
	unsubscribe := cache.OnStateChange(func(State) { calls++ })

	require.NoError(t, cache.ApplyLocalMove(cardX, colA, colB, 0))
	unsubscribe()
	require.NoError(t, cache.ApplyLocalMove(cardX, colB, colA, 0))

	assert.Equal(t, 1, calls)
}

func TestCache_CardLookup(t *testing.T) {
	cache := loadedCache(t, seedStore())

	card, columnID, index, ok := cache.Card(cardQ)
	require.True(t, ok)
	assert.Equal(t, "Q", card.Title)
	assert.Equal(t, colB, columnID)
	assert.Equal(t, 1, index)

	_, _, _, ok = cache.Card(42)
	assert.False(t, ok)
}

func TestCache_UpdateCardKeepsPlacement(t *testing.T) {
	cache := loadedCache(t, seedStore())

	ok := cache.UpdateCard(cardY, func(card *models.Card) {
		card.Title = "Renamed"
		card.Position = 999
		card.ColumnID = colB
	})
	require.True(t, ok)

	card, columnID, index, _ := cache.Card(cardY)
	assert.Equal(t, "Renamed", card.Title)
	assert.Equal(t, int64(20), card.Position)
	assert.Equal(t, colA, columnID)
	assert.Equal(t, 1, index)

	assert.False(t, cache.UpdateCard(42, func(*models.Card) {}))
}

func TestCache_RemoveCard(t *testing.T) {
	cache := loadedCache(t, seedStore())

	require.True(t, cache.RemoveCard(cardY))
	cards, _ := cache.Cards(colA)
	assert.Equal(t, []uint64{cardX, cardZ}, cardIDs(cards))
	assert.False(t, cache.RemoveCard(cardY))
}

func TestState_LanesFollowColumnOrder(t *testing.T) {
	store := seedStore()
	store.addColumn(projectID, 30, "Archive", 300)
	cache := loadedCache(t, store)

	lanes := cache.State().Lanes()
	require.Len(t, lanes, 3)
	assert.Equal(t, "To Do", lanes[0].Name)
	assert.Equal(t, []uint64{cardX, cardY, cardZ}, cardIDs(lanes[0].Cards))
	assert.Equal(t, "Archive", lanes[2].Name)
	assert.NotNil(t, lanes[2].Cards)
	assert.Empty(t, lanes[2].Cards)
}
