package board

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrMoveInFlight is returned when a card is moved again before its previous
// move has been committed or rolled back.
var ErrMoveInFlight = errors.New("board: card move already in flight")

// FetchError reports a failed read from the remote store during Load.
type FetchError struct {
	ProjectID uint64
	ColumnID  uint64
	Err       error
}

func (e *FetchError) Error() string {
	if e.ColumnID != 0 {
		return fmt.Sprintf("board: fetch cards of column %d in project %d: %v", e.ColumnID, e.ProjectID, e.Err)
	}
	return fmt.Sprintf("board: fetch columns of project %d: %v", e.ProjectID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistError reports a failed write. Change carries what was attempted.
type PersistError struct {
	Op       string
	EntityID uint64
	Change   any
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("board: persist %s of %d: %v", e.Op, e.EntityID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// ValidationError reports an operation or row that references state the board
// does not have. It signals a desync between caller and cache; state is left
// untouched.
type ValidationError struct {
	Entity string
	ID     uint64
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("board: invalid %s %d: %s", e.Entity, e.ID, e.Reason)
	}
	return fmt.Sprintf("board: invalid %s: %s", e.Entity, e.Reason)
}

func invalid(entity string, id uint64, format string, args ...any) *ValidationError {
	return &ValidationError{Entity: entity, ID: id, Reason: fmt.Sprintf(format, args...)}
}

// warnInvalid logs a rejected operation. Other errors are left to the caller.
func warnInvalid(logger *zap.Logger, op string, projectID uint64, err error) {
	var v *ValidationError
	if !errors.As(err, &v) {
		return
	}
	logger.Warn("board operation rejected",
		zap.String("op", op),
		zap.Uint64("project_id", projectID),
		zap.String("entity", v.Entity),
		zap.Uint64("entity_id", v.ID),
		zap.String("reason", v.Reason),
	)
}
