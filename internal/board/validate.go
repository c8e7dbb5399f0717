package board

import (
	"strings"

	"github.com/yukikurage/project-board-api/internal/models"
)

func validateColumn(projectID uint64, col models.Column) error {
	switch {
	case col.ID == 0:
		return invalid("column", 0, "missing id")
	case col.ProjectID != projectID:
		return invalid("column", col.ID, "belongs to project %d, not %d", col.ProjectID, projectID)
	}
	return nil
}

func validateCard(col models.Column, card models.Card) error {
	switch {
	case card.ID == 0:
		return invalid("card", 0, "missing id")
	case card.ColumnID != col.ID:
		return invalid("card", card.ID, "listed under column %d but references column %d", col.ID, card.ColumnID)
	case card.ProjectID != col.ProjectID:
		return invalid("card", card.ID, "belongs to project %d, not %d", card.ProjectID, col.ProjectID)
	case strings.TrimSpace(card.Title) == "":
		return invalid("card", card.ID, "empty title")
	case !card.Priority.Valid():
		return invalid("card", card.ID, "unknown priority %q", card.Priority)
	case card.Completed != (card.CompletedAt != nil):
		return invalid("card", card.ID, "completed_at must be set iff completed")
	case card.Position < 0:
		return invalid("card", card.ID, "negative position %d", card.Position)
	}
	return nil
}

// hasDuplicatePositions reports whether two neighbours share a position.
// Loads tolerate it; the next insertion into that column renumbers.
func hasDuplicatePositions(cards []models.Card) bool {
	for i := 1; i < len(cards); i++ {
		if cards[i].Position == cards[i-1].Position {
			return true
		}
	}
	return false
}
