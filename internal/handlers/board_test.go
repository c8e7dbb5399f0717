package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/yukikurage/project-board-api/internal/board"
	"github.com/yukikurage/project-board-api/internal/dto"
	apierrors "github.com/yukikurage/project-board-api/internal/errors"
	"github.com/yukikurage/project-board-api/internal/models"
)

// BoardHandlerTestSuite drives the board endpoints against a fresh project
// with the default columns.
type BoardHandlerTestSuite struct {
	suite.Suite
	env     *testEnv
	owner   *user
	project dto.ProjectDTO
	todo    uint64
	doing   uint64
	done    uint64
}

func (s *BoardHandlerTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
	s.owner = s.env.signup("owner@example.com")
	s.project = s.env.createProject(s.owner, "Board")

	b := s.env.board(s.owner, s.project.ID)
	s.Require().Len(b.Columns, 3)
	s.todo, s.doing, s.done = b.Columns[0].ID, b.Columns[1].ID, b.Columns[2].ID
}

func (s *BoardHandlerTestSuite) path(suffix string) string {
	return projectPath(s.project.ID, suffix)
}

func (s *BoardHandlerTestSuite) createCard(columnID uint64, title string) models.Card {
	w := s.env.do(http.MethodPost, s.path("/cards"), map[string]any{
		"column_id": columnID,
		"title":     title,
	}, s.owner)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Card](s.T(), w)
}

func (s *BoardHandlerTestSuite) titles(columnID uint64) []string {
	var out []string
	for _, lane := range s.env.board(s.owner, s.project.ID).Columns {
		if lane.ID != columnID {
			continue
		}
		for _, c := range lane.Cards {
			out = append(out, c.Title)
		}
	}
	return out
}

func (s *BoardHandlerTestSuite) TestCreateCardAppendsAndInserts() {
	a := s.createCard(s.todo, "A")
	b := s.createCard(s.todo, "B")
	s.Equal(int64(100), a.Position)
	s.Equal(int64(200), b.Position)

	w := s.env.do(http.MethodPost, s.path("/cards"), map[string]any{
		"column_id": s.todo,
		"index":     0,
		"title":     "First",
		"tags":      []string{" ui ", "ui", "api"},
		"priority":  "high",
	}, s.owner)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	first := decode[models.Card](s.T(), w)
	s.Equal(int64(50), first.Position)
	s.Equal([]string{"ui", "api"}, first.Tags)
	s.Equal(models.PriorityHigh, first.Priority)

	s.Equal([]string{"First", "A", "B"}, s.titles(s.todo))
}

func (s *BoardHandlerTestSuite) TestCreateCardValidation() {
	w := s.env.do(http.MethodPost, s.path("/cards"), map[string]any{"column_id": s.todo, "title": "x", "priority": "someday"}, s.owner)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.env.do(http.MethodPost, s.path("/cards"), map[string]any{"column_id": 9999, "title": "x"}, s.owner)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.env.do(http.MethodPost, s.path("/cards"), map[string]any{"column_id": s.todo, "title": "x", "assignee_id": 9999}, s.owner)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *BoardHandlerTestSuite) TestMoveCardAcrossColumns() {
	a := s.createCard(s.todo, "A")
	s.createCard(s.todo, "B")
	s.createCard(s.doing, "C")

	w := s.env.do(http.MethodPost, s.path("/cards/"+itoa(a.ID)+"/move"), map[string]any{
		"source_column_id": s.todo,
		"source_index":     0,
		"dest_column_id":   s.doing,
		"dest_index":       1,
	}, s.owner)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	move := decode[dto.MoveResponse](s.T(), w)
	s.Equal(a.ID, move.CardID)
	s.Equal(s.doing, move.ColumnID)
	s.Equal(int64(200), move.Position)
	s.False(move.Renumbered)

	s.Equal([]string{"B"}, s.titles(s.todo))
	s.Equal([]string{"C", "A"}, s.titles(s.doing))

	// the database agrees after a forced reload
	w = s.env.do(http.MethodGet, s.path("/board?refresh=true"), nil, s.owner)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal([]string{"C", "A"}, s.titles(s.doing))
}

func (s *BoardHandlerTestSuite) TestMoveWithStaleSourceIndexIsRejected() {
	a := s.createCard(s.todo, "A")
	s.createCard(s.todo, "B")

	w := s.env.do(http.MethodPost, s.path("/cards/"+itoa(a.ID)+"/move"), map[string]any{
		"source_column_id": s.todo,
		"source_index":     1,
		"dest_column_id":   s.done,
		"dest_index":       0,
	}, s.owner)
	s.Require().Equal(http.StatusBadRequest, w.Code)
	body := decode[apiError](s.T(), w)
	s.Equal(apierrors.ErrCodeInvalidInput, body.Code)
	s.Equal("card", body.Details["entity"])

	s.Equal([]string{"A", "B"}, s.titles(s.todo))
}

func (s *BoardHandlerTestSuite) TestCompletionToggle() {
	a := s.createCard(s.todo, "A")

	w := s.env.do(http.MethodPut, s.path("/cards/"+itoa(a.ID)+"/completion"), map[string]bool{"completed": true}, s.owner)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	completion := decode[board.Completion](s.T(), w)
	s.True(completion.Completed)
	s.NotNil(completion.CompletedAt)

	lane := s.env.board(s.owner, s.project.ID).Columns[0]
	s.Require().Len(lane.Cards, 1)
	s.True(lane.Cards[0].Completed)
	s.Equal(a.Position, lane.Cards[0].Position)

	w = s.env.do(http.MethodPut, s.path("/cards/"+itoa(a.ID)+"/completion"), map[string]bool{"completed": false}, s.owner)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Nil(decode[board.Completion](s.T(), w).CompletedAt)

	w = s.env.do(http.MethodPut, s.path("/cards/"+itoa(a.ID)+"/completion"), map[string]any{}, s.owner)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *BoardHandlerTestSuite) TestUpdateAndDeleteCard() {
	a := s.createCard(s.todo, "A")

	w := s.env.do(http.MethodPatch, s.path("/cards/"+itoa(a.ID)), map[string]any{
		"title":       "Renamed",
		"assignee_id": s.owner.id,
	}, s.owner)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Card](s.T(), w)
	s.Equal("Renamed", updated.Title)
	s.Require().NotNil(updated.AssigneeID)
	s.Equal(s.owner.id, *updated.AssigneeID)

	w = s.env.do(http.MethodPatch, s.path("/cards/"+itoa(a.ID)), map[string]any{"clear_assignee": true}, s.owner)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Nil(decode[models.Card](s.T(), w).AssigneeID)

	w = s.env.do(http.MethodDelete, s.path("/cards/"+itoa(a.ID)), nil, s.owner)
	s.Require().Equal(http.StatusNoContent, w.Code)
	s.Empty(s.titles(s.todo))

	w = s.env.do(http.MethodDelete, s.path("/cards/"+itoa(a.ID)), nil, s.owner)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *BoardHandlerTestSuite) TestCardOfAnotherProjectIsNotFound() {
	other := s.env.createProject(s.owner, "Other")
	otherTodo := s.env.board(s.owner, other.ID).Columns[0].ID
	w := s.env.do(http.MethodPost, projectPath(other.ID, "/cards"), map[string]any{"column_id": otherTodo, "title": "Elsewhere"}, s.owner)
	s.Require().Equal(http.StatusCreated, w.Code)
	foreign := decode[models.Card](s.T(), w)

	w = s.env.do(http.MethodPatch, s.path("/cards/"+itoa(foreign.ID)), map[string]any{"title": "Hijack"}, s.owner)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *BoardHandlerTestSuite) TestColumnLifecycle() {
	w := s.env.do(http.MethodPost, s.path("/columns"), map[string]string{"name": "Review"}, s.owner)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	review := decode[models.Column](s.T(), w)
	s.Equal(int64(400), review.Position)

	w = s.env.do(http.MethodPost, s.path("/columns/"+itoa(review.ID)+"/move"), map[string]int{"index": 0}, s.owner)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	moved := decode[dto.BoardResponse](s.T(), w)
	s.Require().Len(moved.Columns, 4)
	s.Equal("Review", moved.Columns[0].Name)

	w = s.env.do(http.MethodPatch, s.path("/columns/"+itoa(review.ID)), map[string]string{"name": "QA"}, s.owner)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("QA", decode[models.Column](s.T(), w).Name)

	s.createCard(review.ID, "Check")
	w = s.env.do(http.MethodDelete, s.path("/columns/"+itoa(review.ID)), nil, s.owner)
	s.Equal(http.StatusConflict, w.Code)

	w = s.env.do(http.MethodDelete, s.path("/columns/"+itoa(s.done)), nil, s.owner)
	s.Require().Equal(http.StatusNoContent, w.Code)
	s.Len(s.env.board(s.owner, s.project.ID).Columns, 3)
}

func (s *BoardHandlerTestSuite) TestSuggestWithoutAIService() {
	w := s.env.do(http.MethodPost, s.path("/cards/suggest"), map[string]any{"column_id": s.todo, "text": "plan the launch"}, s.owner)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *BoardHandlerTestSuite) TestSocketDisabledWithoutHub() {
	w := s.env.do(http.MethodGet, s.path("/board/ws"), nil, s.owner)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func TestBoardHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(BoardHandlerTestSuite))
}

func TestRespondBoardError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		recorded bool
	}{
		{"persist failure", &board.PersistError{Op: "move", EntityID: 7, Err: errors.New("timeout")}, http.StatusBadGateway, apierrors.ErrCodeOperationFailed, true},
		{"fetch failure", &board.FetchError{ProjectID: 1, Err: errors.New("down")}, http.StatusServiceUnavailable, apierrors.ErrCodeServiceUnavailable, true},
		{"move in flight", board.ErrMoveInFlight, http.StatusConflict, apierrors.ErrCodeConflict, false},
		{"desync", &board.ValidationError{Entity: "column", ID: 3, Reason: "not on board"}, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apierrors.ErrCodeInternalError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondBoardError(c, tt.err)

			require.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[apiError](t, w).Code)
			assert.Equal(t, tt.recorded, len(c.Errors) > 0)
		})
	}
}
