package board

import (
	"context"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
)

// State is a copy of the board handed to listeners and callers. Mutating it
// never affects the Cache.
type State struct {
	ProjectID uint64
	Columns   []models.Column
	Cards     map[uint64][]models.Card
}

// Lane is one column with its ordered cards.
type Lane struct {
	models.Column
	Cards []models.Card `json:"cards"`
}

// Lanes returns the board as columns in order, each with its cards.
func (s State) Lanes() []Lane {
	lanes := make([]Lane, len(s.Columns))
	for i, col := range s.Columns {
		cards := s.Cards[col.ID]
		if cards == nil {
			cards = []models.Card{}
		}
		lanes[i] = Lane{Column: col, Cards: cards}
	}
	return lanes
}

// Listener is notified after every mutation of the Cache.
type Listener func(State)

// Snapshot captures the column to cards mapping for a later Rollback.
type Snapshot struct {
	cards map[uint64][]models.Card
}

// Cards returns a copy of the captured mapping.
func (s Snapshot) Cards() map[uint64][]models.Card {
	return copyCards(s.cards)
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// Cache is the in-memory view of one project's columns and ordered cards.
type Cache struct {
	store     repository.BoardStore
	logger    *zap.Logger
	projectID uint64

	mu        sync.Mutex
	loaded    bool
	columns   []models.Column
	cards     map[uint64][]models.Card
	inFlight  map[uint64]struct{}
	listeners []listenerEntry
	nextID    uint64
}

// NewCache creates an empty Cache for a project. Call Load before use.
func NewCache(projectID uint64, store repository.BoardStore, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:     store,
		logger:    logger.With(zap.Uint64("project_id", projectID)),
		projectID: projectID,
		cards:     make(map[uint64][]models.Card),
		inFlight:  make(map[uint64]struct{}),
	}
}

// ProjectID returns the project this Cache holds.
func (c *Cache) ProjectID() uint64 { return c.projectID }

// Load fetches every column and card of the project and replaces the cached
// state. Rows that do not describe a consistent board fail with a
// ValidationError; store failures come back as a FetchError. On error the
// previous state is kept.
func (c *Cache) Load(ctx context.Context) (map[uint64][]models.Card, error) {
	columns, err := c.store.ListColumns(ctx, c.projectID)
	if err != nil {
		return nil, &FetchError{ProjectID: c.projectID, Err: err}
	}
	for _, col := range columns {
		if err := validateColumn(c.projectID, col); err != nil {
			c.logger.Error("rejected column row", zap.Error(err))
			return nil, err
		}
	}
	sort.SliceStable(columns, func(i, j int) bool {
		if columns[i].Position != columns[j].Position {
			return columns[i].Position < columns[j].Position
		}
		return columns[i].ID < columns[j].ID
	})

	cards := make(map[uint64][]models.Card, len(columns))
	for _, col := range columns {
		list, err := c.store.ListCards(ctx, col.ID)
		if err != nil {
			return nil, &FetchError{ProjectID: c.projectID, ColumnID: col.ID, Err: err}
		}
		for _, card := range list {
			if err := validateCard(col, card); err != nil {
				c.logger.Error("rejected card row", zap.Error(err))
				return nil, err
			}
		}
		sortCards(list)
		if hasDuplicatePositions(list) {
			c.logger.Warn("column has duplicate card positions", zap.Uint64("column_id", col.ID))
		}
		if list == nil {
			list = []models.Card{}
		}
		cards[col.ID] = list
	}

	c.mu.Lock()
	c.columns = columns
	c.cards = cards
	c.loaded = true
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
	return copyCards(cards), nil
}

// Loaded reports whether a Load has succeeded.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// State returns a copy of the whole board.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Columns returns the columns ordered by position.
func (c *Cache) Columns() []models.Column {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.columns)
}

// Cards returns a copy of a column's ordered cards.
func (c *Cache) Cards(columnID uint64) ([]models.Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list, ok := c.cards[columnID]
	if !ok {
		return nil, false
	}
	return copyCardList(list), true
}

// Card looks a card up and returns it with its column and index.
func (c *Cache) Card(cardID uint64) (card models.Card, columnID uint64, index int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	columnID, index, ok = c.locateLocked(cardID)
	if !ok {
		return models.Card{}, 0, 0, false
	}
	return copyCard(c.cards[columnID][index]), columnID, index, true
}

// Snapshot captures the current column to cards mapping.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{cards: copyCards(c.cards)}
}

// ApplyLocalMove moves a card in memory without persisting it. Moving a card
// onto its current index is a no-op and notifies nobody.
func (c *Cache) ApplyLocalMove(cardID, fromColumnID, toColumnID uint64, toIndex int) error {
	c.mu.Lock()
	fromIndex, err := c.checkMoveLocked(cardID, fromColumnID, toColumnID, toIndex)
	if err != nil {
		c.mu.Unlock()
		warnInvalid(c.logger, "apply_local_move", c.projectID, err)
		return err
	}
	if fromColumnID == toColumnID && fromIndex == toIndex {
		c.mu.Unlock()
		return nil
	}
	c.moveLocked(fromColumnID, fromIndex, toColumnID, toIndex, nil)
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
	return nil
}

// UpdateCard applies fn to a cached card and notifies listeners. Column and
// position changes made by fn are discarded; those go through the Engine.
func (c *Cache) UpdateCard(cardID uint64, fn func(*models.Card)) bool {
	c.mu.Lock()
	ok := c.updateCardLocked(cardID, func(card *models.Card) {
		columnID, position := card.ColumnID, card.Position
		fn(card)
		card.ColumnID, card.Position = columnID, position
	})
	if !ok {
		c.mu.Unlock()
		return false
	}
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
	return true
}

// RemoveCard drops a card from its column and notifies listeners.
func (c *Cache) RemoveCard(cardID uint64) bool {
	c.mu.Lock()
	columnID, index, ok := c.locateLocked(cardID)
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.cards[columnID] = slices.Delete(slices.Clone(c.cards[columnID]), index, index+1)
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
	return true
}

// Rollback restores a Snapshot taken earlier and notifies listeners.
func (c *Cache) Rollback(s Snapshot) {
	c.mu.Lock()
	c.cards = copyCards(s.cards)
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
}

// OnStateChange registers a listener and returns a func that removes it.
func (c *Cache) OnStateChange(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.listeners = slices.DeleteFunc(c.listeners, func(l listenerEntry) bool { return l.id == id })
	}
}

// checkMoveLocked validates a move and returns the card's current index.
func (c *Cache) checkMoveLocked(cardID, fromColumnID, toColumnID uint64, toIndex int) (int, error) {
	if !c.loaded {
		return 0, invalid("board", c.projectID, "not loaded")
	}
	source, ok := c.cards[fromColumnID]
	if !ok {
		return 0, invalid("column", fromColumnID, "not on board")
	}
	dest, ok := c.cards[toColumnID]
	if !ok {
		return 0, invalid("column", toColumnID, "not on board")
	}
	fromIndex := slices.IndexFunc(source, func(card models.Card) bool { return card.ID == cardID })
	if fromIndex < 0 {
		return 0, invalid("card", cardID, "not in column %d", fromColumnID)
	}
	limit := len(dest)
	if fromColumnID == toColumnID {
		limit--
	}
	if toIndex < 0 || toIndex > limit {
		return 0, invalid("card", cardID, "destination index %d out of range [0, %d]", toIndex, limit)
	}
	return fromIndex, nil
}

// moveLocked relocates a card and applies new positions to the destination
// column. positions may be nil.
func (c *Cache) moveLocked(fromColumnID uint64, fromIndex int, toColumnID uint64, toIndex int, positions map[uint64]int64) {
	source := c.cards[fromColumnID]
	card := source[fromIndex]
	c.cards[fromColumnID] = slices.Delete(slices.Clone(source), fromIndex, fromIndex+1)

	card.ColumnID = toColumnID
	dest := slices.Insert(slices.Clone(c.cards[toColumnID]), toIndex, card)
	for i := range dest {
		if pos, ok := positions[dest[i].ID]; ok {
			dest[i].Position = pos
		}
	}
	c.cards[toColumnID] = dest
}

// updateCardLocked replaces a cached card in place. It reports whether the
// card was on the board.
func (c *Cache) updateCardLocked(cardID uint64, fn func(*models.Card)) bool {
	columnID, index, ok := c.locateLocked(cardID)
	if !ok {
		return false
	}
	list := slices.Clone(c.cards[columnID])
	fn(&list[index])
	c.cards[columnID] = list
	return true
}

func (c *Cache) locateLocked(cardID uint64) (uint64, int, bool) {
	for columnID, list := range c.cards {
		for i := range list {
			if list[i].ID == cardID {
				return columnID, i, true
			}
		}
	}
	return 0, 0, false
}

func (c *Cache) stateLocked() State {
	return State{
		ProjectID: c.projectID,
		Columns:   slices.Clone(c.columns),
		Cards:     copyCards(c.cards),
	}
}

// notify runs listeners outside the lock so they may read the Cache.
func (c *Cache) notify(state State) {
	c.mu.Lock()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.fn(state)
	}
}

func sortCards(cards []models.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Position != cards[j].Position {
			return cards[i].Position < cards[j].Position
		}
		return cards[i].ID < cards[j].ID
	})
}

func copyCards(src map[uint64][]models.Card) map[uint64][]models.Card {
	dst := make(map[uint64][]models.Card, len(src))
	for columnID, list := range src {
		dst[columnID] = copyCardList(list)
	}
	return dst
}

func copyCardList(src []models.Card) []models.Card {
	dst := make([]models.Card, len(src))
	for i := range src {
		dst[i] = copyCard(src[i])
	}
	return dst
}

func copyCard(card models.Card) models.Card {
	card.Tags = slices.Clone(card.Tags)
	if card.AssigneeID != nil {
		v := *card.AssigneeID
		card.AssigneeID = &v
	}
	if card.DueDate != nil {
		v := *card.DueDate
		card.DueDate = &v
	}
	if card.CompletedAt != nil {
		v := *card.CompletedAt
		card.CompletedAt = &v
	}
	return card
}
