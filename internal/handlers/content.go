package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-board-api/internal/dto"
	apierrors "github.com/yukikurage/project-board-api/internal/errors"
	"github.com/yukikurage/project-board-api/internal/services"
	"github.com/yukikurage/project-board-api/internal/utils"
)

// ContentHandler serves a project's notes and links.
type ContentHandler struct {
	contentService *services.ContentService
}

func NewContentHandler(contentService *services.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

type noteRequest struct {
	Title   *string `json:"title" binding:"omitempty,max=255"`
	Content *string `json:"content"`
}

type linkRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	URL         *string `json:"url" binding:"omitempty,max=2048"`
	Description *string `json:"description"`
}

func (h *ContentHandler) ListNotes(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	notes, total, err := h.contentService.ListNotes(c.Request.Context(), pid, params.Offset, params.Limit)
	if err != nil {
		respondContentError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToNoteListResponse(notes, params, total))
}

func (h *ContentHandler) CreateNote(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	note, err := h.contentService.CreateNote(c.Request.Context(), pid, userID, services.NoteInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		respondContentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, note)
}

func (h *ContentHandler) UpdateNote(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	noteID, ok := parseIDParam(c, "note_id", "note")
	if !ok {
		return
	}

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	note, err := h.contentService.UpdateNote(c.Request.Context(), pid, noteID, services.NoteInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		respondContentError(c, err)
		return
	}

	c.JSON(http.StatusOK, note)
}

func (h *ContentHandler) DeleteNote(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	noteID, ok := parseIDParam(c, "note_id", "note")
	if !ok {
		return
	}

	if err := h.contentService.DeleteNote(c.Request.Context(), pid, noteID); err != nil {
		respondContentError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ContentHandler) ListLinks(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	links, total, err := h.contentService.ListLinks(c.Request.Context(), pid, params.Offset, params.Limit)
	if err != nil {
		respondContentError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToLinkListResponse(links, params, total))
}

func (h *ContentHandler) CreateLink(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	link, err := h.contentService.CreateLink(c.Request.Context(), pid, userID, services.LinkInput{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
	})
	if err != nil {
		respondContentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, link)
}

func (h *ContentHandler) UpdateLink(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	linkID, ok := parseIDParam(c, "link_id", "link")
	if !ok {
		return
	}

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	link, err := h.contentService.UpdateLink(c.Request.Context(), pid, linkID, services.LinkInput{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
	})
	if err != nil {
		respondContentError(c, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

func (h *ContentHandler) DeleteLink(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	linkID, ok := parseIDParam(c, "link_id", "link")
	if !ok {
		return
	}

	if err := h.contentService.DeleteLink(c.Request.Context(), pid, linkID); err != nil {
		respondContentError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func respondContentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNoteNotFound),
		errors.Is(err, services.ErrLinkNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidURL):
		apierrors.BadRequest(c, err.Error())
	default:
		internalError(c, err)
	}
}
