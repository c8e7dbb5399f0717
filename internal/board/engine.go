package board

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/repository"
)

// MoveRequest describes a drag of one card. SourceIndex is the card's index
// in its column; DestIndex is read after the card has left the source.
type MoveRequest struct {
	CardID         uint64
	SourceColumnID uint64
	SourceIndex    int
	DestColumnID   uint64
	DestIndex      int
}

// Plan is the outcome of planning a move: the positions to apply locally and
// the writes that persist them.
type Plan struct {
	Request MoveRequest
	NoOp    bool
	// Position is the moved card's new position.
	Position   int64
	Renumbered bool
	// Positions holds every destination-column position the move changes.
	Positions map[uint64]int64
	Updates   []repository.CardUpdate
}

// Placement is where a new card goes in a column. Renumber is non-empty when
// existing cards had to be respaced to make room.
type Placement struct {
	ColumnID uint64
	Index    int
	Position int64
	Renumber []repository.CardUpdate
}

// MoveState is the lifecycle of a PendingMove.
type MoveState string

const (
	MovePending    MoveState = "pending"
	MoveConfirmed  MoveState = "confirmed"
	MoveRolledBack MoveState = "rolled_back"
)

// Engine plans card moves against a Cache and writes them to the store.
type Engine struct {
	cache  *Cache
	store  repository.BoardStore
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates an Engine bound to a Cache.
func NewEngine(cache *Cache, store repository.BoardStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cache: cache, store: store, logger: logger, now: time.Now}
}

// Plan computes the positions for a move without touching any state.
func (e *Engine) Plan(req MoveRequest) (*Plan, error) {
	c := e.cache
	c.mu.Lock()
	plan, err := e.planLocked(req)
	c.mu.Unlock()
	if err != nil {
		warnInvalid(e.logger, "plan_move", c.projectID, err)
	}
	return plan, err
}

// Begin plans a move and applies it to the Cache. The returned PendingMove
// must be committed; until then the card cannot be moved again.
func (e *Engine) Begin(req MoveRequest) (*PendingMove, error) {
	c := e.cache
	c.mu.Lock()
	plan, err := e.planLocked(req)
	if err != nil {
		c.mu.Unlock()
		warnInvalid(e.logger, "move", c.projectID, err)
		return nil, err
	}
	if _, busy := c.inFlight[req.CardID]; busy {
		c.mu.Unlock()
		return nil, ErrMoveInFlight
	}

	pm := &PendingMove{engine: e, plan: plan, state: MovePending}
	if plan.NoOp {
		pm.state = MoveConfirmed
		c.mu.Unlock()
		return pm, nil
	}

	pm.undo = undoFor(c.cards, plan)
	c.inFlight[req.CardID] = struct{}{}
	c.moveLocked(req.SourceColumnID, req.SourceIndex, req.DestColumnID, req.DestIndex, plan.Positions)
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
	return pm, nil
}

// Move begins and commits a move in one call.
func (e *Engine) Move(ctx context.Context, req MoveRequest) (*Plan, error) {
	pm, err := e.Begin(req)
	if err != nil {
		return nil, err
	}
	if err := pm.Commit(ctx); err != nil {
		return nil, err
	}
	return pm.Plan(), nil
}

// Place computes the position for a new card inserted at index. An index past
// the end appends.
func (e *Engine) Place(columnID uint64, index int) (*Placement, error) {
	c := e.cache
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		err := invalid("board", c.projectID, "not loaded")
		warnInvalid(e.logger, "place", c.projectID, err)
		return nil, err
	}
	dest, ok := c.cards[columnID]
	if !ok {
		err := invalid("column", columnID, "not on board")
		warnInvalid(e.logger, "place", c.projectID, err)
		return nil, err
	}
	if index < 0 || index > len(dest) {
		index = len(dest)
	}

	p := &Placement{ColumnID: columnID, Index: index}
	if pos, ok := PositionAt(positionsOf(dest), index); ok {
		p.Position = pos
		return p, nil
	}

	fresh := Renumbered(len(dest) + 1)
	now := e.now()
	for i, card := range dest {
		slot := i
		if i >= index {
			slot++
		}
		p.Renumber = append(p.Renumber, positionUpdate(card.ID, nil, fresh[slot], now))
	}
	p.Position = fresh[index]
	return p, nil
}

// Insert adds a persisted card to the Cache at the given placement, applying
// any renumbering the placement carried.
func (e *Engine) Insert(card models.Card, p *Placement) error {
	c := e.cache
	c.mu.Lock()
	dest, ok := c.cards[p.ColumnID]
	if !ok {
		c.mu.Unlock()
		return invalid("column", p.ColumnID, "not on board")
	}
	positions := make(map[uint64]int64, len(p.Renumber))
	for _, u := range p.Renumber {
		positions[u.CardID] = *u.Fields.Position
	}
	list := slices.Clone(dest)
	for i := range list {
		if pos, ok := positions[list[i].ID]; ok {
			list[i].Position = pos
		}
	}
	card.ColumnID = p.ColumnID
	card.Position = p.Position
	list = slices.Insert(list, min(p.Index, len(list)), copyCard(card))
	sortCards(list)
	c.cards[p.ColumnID] = list
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
	return nil
}

func (e *Engine) planLocked(req MoveRequest) (*Plan, error) {
	c := e.cache
	fromIndex, err := c.checkMoveLocked(req.CardID, req.SourceColumnID, req.DestColumnID, req.DestIndex)
	if err != nil {
		return nil, err
	}
	if fromIndex != req.SourceIndex {
		return nil, invalid("card", req.CardID, "at index %d of column %d, not %d", fromIndex, req.SourceColumnID, req.SourceIndex)
	}

	plan := &Plan{Request: req}
	if req.SourceColumnID == req.DestColumnID && req.SourceIndex == req.DestIndex {
		plan.NoOp = true
		plan.Position = c.cards[req.SourceColumnID][fromIndex].Position
		return plan, nil
	}

	// siblings is the destination column with the moved card taken out.
	siblings := c.cards[req.DestColumnID]
	if req.SourceColumnID == req.DestColumnID {
		siblings = slices.Delete(slices.Clone(siblings), fromIndex, fromIndex+1)
	}

	now := e.now()
	if pos, ok := PositionAt(positionsOf(siblings), req.DestIndex); ok {
		plan.Position = pos
		plan.Positions = map[uint64]int64{req.CardID: pos}
		plan.Updates = []repository.CardUpdate{positionUpdate(req.CardID, &req.DestColumnID, pos, now)}
		return plan, nil
	}

	fresh := Renumbered(len(siblings) + 1)
	plan.Renumbered = true
	plan.Positions = make(map[uint64]int64, len(fresh))
	for i, slot := 0, 0; slot < len(fresh); slot++ {
		if slot == req.DestIndex {
			plan.Position = fresh[slot]
			plan.Positions[req.CardID] = fresh[slot]
			plan.Updates = append(plan.Updates, positionUpdate(req.CardID, &req.DestColumnID, fresh[slot], now))
			continue
		}
		id := siblings[i].ID
		plan.Positions[id] = fresh[slot]
		plan.Updates = append(plan.Updates, positionUpdate(id, nil, fresh[slot], now))
		i++
	}
	return plan, nil
}

func positionUpdate(cardID uint64, columnID *uint64, position int64, now time.Time) repository.CardUpdate {
	fields := repository.CardFields{Position: &position, UpdatedAt: &now}
	if columnID != nil {
		col := *columnID
		fields.ColumnID = &col
	}
	return repository.CardUpdate{CardID: cardID, Fields: fields}
}

func positionsOf(cards []models.Card) []int64 {
	positions := make([]int64, len(cards))
	for i := range cards {
		positions[i] = cards[i].Position
	}
	return positions
}

// PendingMove is a move applied to the Cache but not yet persisted.
type PendingMove struct {
	engine *Engine
	plan   *Plan
	undo   moveUndo

	mu    sync.Mutex
	state MoveState
}

// Plan returns the plan being carried out.
func (m *PendingMove) Plan() *Plan { return m.plan }

// State reports where the move is in its lifecycle.
func (m *PendingMove) State() MoveState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Commit writes the move to the store. On failure the moved card and any
// cards the move renumbered get their previous placement back, and a
// PersistError is returned. Changes other requests made to the board since
// Begin are kept. Committing a settled move does nothing.
func (m *PendingMove) Commit(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != MovePending {
		return nil
	}

	e := m.engine
	req := m.plan.Request
	var err error
	if len(m.plan.Updates) == 1 {
		u := m.plan.Updates[0]
		err = e.store.UpdateCard(ctx, u.CardID, u.Fields)
	} else {
		err = e.store.UpdateCardsBatch(ctx, m.plan.Updates)
	}

	c := e.cache
	c.mu.Lock()
	delete(c.inFlight, req.CardID)
	c.mu.Unlock()

	if err != nil {
		e.logger.Error("card move failed, rolling back",
			zap.Uint64("card_id", req.CardID),
			zap.Uint64("dest_column_id", req.DestColumnID),
			zap.Int("dest_index", req.DestIndex),
			zap.Bool("renumbered", m.plan.Renumbered),
			zap.Error(err),
		)
		c.revert(m.undo)
		m.state = MoveRolledBack
		return &PersistError{Op: "move", EntityID: req.CardID, Change: m.plan, Err: err}
	}

	e.logger.Debug("card moved",
		zap.Uint64("card_id", req.CardID),
		zap.Uint64("dest_column_id", req.DestColumnID),
		zap.Int64("position", m.plan.Position),
		zap.Bool("renumbered", m.plan.Renumbered),
	)
	m.state = MoveConfirmed
	return nil
}

// moveUndo is what a failed move must put back: the moved card's column and
// position, and the previous positions of the cards it renumbered.
type moveUndo struct {
	cardID    uint64
	columnID  uint64
	position  int64
	applied   map[uint64]int64
	positions map[uint64]int64
}

func undoFor(cards map[uint64][]models.Card, plan *Plan) moveUndo {
	req := plan.Request
	moved := cards[req.SourceColumnID][req.SourceIndex]
	u := moveUndo{
		cardID:    moved.ID,
		columnID:  moved.ColumnID,
		position:  moved.Position,
		applied:   plan.Positions,
		positions: make(map[uint64]int64),
	}
	for _, card := range cards[req.DestColumnID] {
		if _, ok := plan.Positions[card.ID]; ok && card.ID != moved.ID {
			u.positions[card.ID] = card.Position
		}
	}
	return u
}

// revert undoes one failed move. Cards whose position changed again since the
// move was applied are left alone.
func (c *Cache) revert(u moveUndo) {
	c.mu.Lock()
	touched := make(map[uint64]struct{})

	if columnID, index, ok := c.locateLocked(u.cardID); ok {
		list := slices.Clone(c.cards[columnID])
		card := list[index]
		c.cards[columnID] = slices.Delete(list, index, index+1)
		touched[columnID] = struct{}{}

		home := u.columnID
		if _, ok := c.cards[home]; !ok {
			home = columnID
		}
		card.ColumnID = home
		card.Position = u.position
		c.cards[home] = append(slices.Clone(c.cards[home]), card)
		touched[home] = struct{}{}
	}

	for cardID, previous := range u.positions {
		c.updateCardLocked(cardID, func(card *models.Card) {
			if card.Position != u.applied[cardID] {
				return
			}
			card.Position = previous
			touched[card.ColumnID] = struct{}{}
		})
	}

	for columnID := range touched {
		sortCards(c.cards[columnID])
	}
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
}
