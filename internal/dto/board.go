package dto

import (
	"github.com/yukikurage/project-board-api/internal/board"
	"github.com/yukikurage/project-board-api/internal/models"
)

// BoardResponse is a project's board as ordered columns with their cards
type BoardResponse struct {
	ProjectID uint64       `json:"project_id"`
	Columns   []board.Lane `json:"columns"`
}

// MoveResponse reports where a moved card landed
type MoveResponse struct {
	CardID     uint64 `json:"card_id"`
	ColumnID   uint64 `json:"column_id"`
	Index      int    `json:"index"`
	Position   int64  `json:"position"`
	Renumbered bool   `json:"renumbered"`
}

// CardListResponse wraps a list of cards, e.g. AI suggestions
type CardListResponse struct {
	Cards []models.Card `json:"cards"`
	Count int           `json:"count"`
}

func ToBoardResponse(projectID uint64, lanes []board.Lane) BoardResponse {
	if lanes == nil {
		lanes = []board.Lane{}
	}
	return BoardResponse{ProjectID: projectID, Columns: lanes}
}

func ToMoveResponse(plan *board.Plan) MoveResponse {
	return MoveResponse{
		CardID:     plan.Request.CardID,
		ColumnID:   plan.Request.DestColumnID,
		Index:      plan.Request.DestIndex,
		Position:   plan.Position,
		Renumbered: plan.Renumbered,
	}
}

func ToCardListResponse(cards []models.Card) CardListResponse {
	if cards == nil {
		cards = []models.Card{}
	}
	return CardListResponse{Cards: cards, Count: len(cards)}
}
