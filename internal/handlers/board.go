package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yukikurage/project-board-api/internal/board"
	"github.com/yukikurage/project-board-api/internal/dto"
	apierrors "github.com/yukikurage/project-board-api/internal/errors"
	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/realtime"
	"github.com/yukikurage/project-board-api/internal/services"
)

// BoardHandler serves a project's columns and cards.
type BoardHandler struct {
	boardService *services.BoardService
	hub          *realtime.Hub
	upgrader     *websocket.Upgrader
}

// NewBoardHandler creates a new BoardHandler. hub may be nil, which disables
// the websocket endpoint and card events.
func NewBoardHandler(boardService *services.BoardService, hub *realtime.Hub, upgrader *websocket.Upgrader) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
		hub:          hub,
		upgrader:     upgrader,
	}
}

// GetBoard returns every column with its ordered cards. ?refresh=true
// reloads from the database first.
func (h *BoardHandler) GetBoard(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}

	lanes, err := h.boardService.GetBoard(c.Request.Context(), pid, c.Query("refresh") == "true")
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBoardResponse(pid, lanes))
}

// BoardSocket upgrades to a websocket that receives the project's board
// state after every change.
func (h *BoardHandler) BoardSocket(c *gin.Context) {
	if h.hub == nil {
		apierrors.ServiceUnavailable(c, "Realtime updates are disabled")
		return
	}
	pid, ok := projectID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	// the upgrader has already answered the request on failure
	if err := h.hub.ServeWS(h.upgrader, c.Writer, c.Request, userID, pid); err != nil {
		_ = c.Error(err)
	}
}

// CreateColumn appends a column.
func (h *BoardHandler) CreateColumn(c *gin.Context) {
	type CreateColumnRequest struct {
		Name string `json:"name" binding:"required,max=255"`
	}

	pid, ok := projectID(c)
	if !ok {
		return
	}

	var req CreateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	column, err := h.boardService.CreateColumn(c.Request.Context(), pid, req.Name)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusCreated, column)
}

// UpdateColumn renames a column.
func (h *BoardHandler) UpdateColumn(c *gin.Context) {
	type UpdateColumnRequest struct {
		Name string `json:"name" binding:"required,max=255"`
	}

	pid, ok := projectID(c)
	if !ok {
		return
	}
	columnID, ok := parseIDParam(c, "column_id", "column")
	if !ok {
		return
	}

	var req UpdateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	column, err := h.boardService.RenameColumn(c.Request.Context(), pid, columnID, req.Name)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, column)
}

// MoveColumn places a column at a new index.
func (h *BoardHandler) MoveColumn(c *gin.Context) {
	type MoveColumnRequest struct {
		Index *int `json:"index" binding:"required"`
	}

	pid, ok := projectID(c)
	if !ok {
		return
	}
	columnID, ok := parseIDParam(c, "column_id", "column")
	if !ok {
		return
	}

	var req MoveColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	lanes, err := h.boardService.MoveColumn(c.Request.Context(), pid, columnID, *req.Index)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBoardResponse(pid, lanes))
}

// DeleteColumn deletes an empty column.
func (h *BoardHandler) DeleteColumn(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	columnID, ok := parseIDParam(c, "column_id", "column")
	if !ok {
		return
	}

	if err := h.boardService.DeleteColumn(c.Request.Context(), pid, columnID); err != nil {
		respondBoardError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateCard adds a card to a column at index, or at the bottom.
func (h *BoardHandler) CreateCard(c *gin.Context) {
	type CreateCardRequest struct {
		ColumnID    uint64          `json:"column_id" binding:"required"`
		Index       *int            `json:"index"`
		Title       string          `json:"title" binding:"required,max=255"`
		Description string          `json:"description"`
		Tags        []string        `json:"tags"`
		Priority    models.Priority `json:"priority"`
		AssigneeID  *uint64         `json:"assignee_id"`
		DueDate     *time.Time      `json:"due_date"`
	}

	pid, ok := projectID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	card, err := h.boardService.CreateCard(c.Request.Context(), pid, services.CreateCardInput{
		ColumnID:    req.ColumnID,
		Index:       req.Index,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		CreatorID:   userID,
	})
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusCreated, card)
}

// UpdateCard edits a card's details.
func (h *BoardHandler) UpdateCard(c *gin.Context) {
	type UpdateCardRequest struct {
		Title         *string          `json:"title" binding:"omitempty,max=255"`
		Description   *string          `json:"description"`
		Tags          *[]string        `json:"tags"`
		Priority      *models.Priority `json:"priority"`
		AssigneeID    *uint64          `json:"assignee_id"`
		ClearAssignee bool             `json:"clear_assignee"`
		DueDate       *time.Time       `json:"due_date"`
		ClearDueDate  bool             `json:"clear_due_date"`
	}

	pid, ok := projectID(c)
	if !ok {
		return
	}
	cardID, ok := parseIDParam(c, "card_id", "card")
	if !ok {
		return
	}

	var req UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	card, err := h.boardService.UpdateCard(c.Request.Context(), pid, cardID, services.UpdateCardInput{
		Title:         req.Title,
		Description:   req.Description,
		Tags:          req.Tags,
		Priority:      req.Priority,
		AssigneeID:    req.AssigneeID,
		ClearAssignee: req.ClearAssignee,
		DueDate:       req.DueDate,
		ClearDueDate:  req.ClearDueDate,
	})
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

// DeleteCard removes a card.
func (h *BoardHandler) DeleteCard(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	cardID, ok := parseIDParam(c, "card_id", "card")
	if !ok {
		return
	}

	if err := h.boardService.DeleteCard(c.Request.Context(), pid, cardID); err != nil {
		respondBoardError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MoveCard applies a drag of a card. The source column and index must match
// the board the client is looking at, otherwise the move is rejected.
func (h *BoardHandler) MoveCard(c *gin.Context) {
	type MoveCardRequest struct {
		SourceColumnID uint64 `json:"source_column_id" binding:"required"`
		SourceIndex    *int   `json:"source_index" binding:"required"`
		DestColumnID   uint64 `json:"dest_column_id" binding:"required"`
		DestIndex      *int   `json:"dest_index" binding:"required"`
	}

	pid, ok := projectID(c)
	if !ok {
		return
	}
	cardID, ok := parseIDParam(c, "card_id", "card")
	if !ok {
		return
	}

	var req MoveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	plan, err := h.boardService.MoveCard(c.Request.Context(), pid, board.MoveRequest{
		CardID:         cardID,
		SourceColumnID: req.SourceColumnID,
		SourceIndex:    *req.SourceIndex,
		DestColumnID:   req.DestColumnID,
		DestIndex:      *req.DestIndex,
	})
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMoveResponse(plan))
}

// SetCardCompletion marks a card done or not done.
func (h *BoardHandler) SetCardCompletion(c *gin.Context) {
	type CompletionRequest struct {
		Completed *bool `json:"completed" binding:"required"`
	}

	pid, ok := projectID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := parseIDParam(c, "card_id", "card")
	if !ok {
		return
	}

	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	completion, err := h.boardService.SetCardCompleted(c.Request.Context(), pid, cardID, *req.Completed)
	if err != nil {
		respondBoardError(c, err)
		return
	}
	if h.hub != nil {
		h.hub.Publish(realtime.Message{
			Type:      realtime.TypeCardChanged,
			ProjectID: pid,
			Data:      completion,
			User:      userID,
		})
	}

	c.JSON(http.StatusOK, completion)
}

// SuggestCards turns free text into cards appended to a column.
func (h *BoardHandler) SuggestCards(c *gin.Context) {
	type SuggestCardsRequest struct {
		ColumnID uint64 `json:"column_id" binding:"required"`
		Text     string `json:"text" binding:"required,max=10000"`
	}

	pid, ok := projectID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SuggestCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	cards, err := h.boardService.SuggestCards(c.Request.Context(), pid, req.ColumnID, userID, req.Text)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCardListResponse(cards))
}

func respondBoardError(c *gin.Context, err error) {
	var (
		validationErr *board.ValidationError
		persistErr    *board.PersistError
		fetchErr      *board.FetchError
	)

	switch {
	case errors.Is(err, services.ErrColumnNotFound),
		errors.Is(err, services.ErrCardNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidColumnName),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidAssignee),
		errors.Is(err, services.ErrSuggestionTextRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrColumnNotEmpty),
		errors.Is(err, board.ErrMoveInFlight):
		apierrors.Conflict(c, err.Error())
	case errors.As(err, &validationErr):
		_ = c.Error(err)
		apierrors.BadRequestWithDetails(c, "The board has changed; reload and try again", gin.H{
			"entity": validationErr.Entity,
			"id":     validationErr.ID,
			"reason": validationErr.Reason,
		})
	case errors.As(err, &persistErr):
		_ = c.Error(err)
		apierrors.OperationFailed(c, "", gin.H{
			"op":        persistErr.Op,
			"entity_id": persistErr.EntityID,
		})
	case errors.As(err, &fetchErr):
		_ = c.Error(err)
		apierrors.ServiceUnavailable(c, "Board could not be loaded")
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrAISuggestionsFailed),
		errors.Is(err, services.ErrAINoCardsSuggested):
		apierrors.RespondWithError(c, http.StatusBadGateway, apierrors.NewAPIError(apierrors.ErrCodeOperationFailed, err.Error()))
	default:
		internalError(c, err)
	}
}
