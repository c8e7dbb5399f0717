package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-board-api/internal/dto"
	apierrors "github.com/yukikurage/project-board-api/internal/errors"
	"github.com/yukikurage/project-board-api/internal/middleware"
	"github.com/yukikurage/project-board-api/internal/services"
)

// boardEvictor drops in-memory boards of projects that change state.
type boardEvictor interface {
	Forget(projectID uint64)
}

// ProjectHandler handles project-related HTTP requests.
type ProjectHandler struct {
	projectService *services.ProjectService
	boards         boardEvictor
}

// NewProjectHandler creates a new ProjectHandler. boards may be nil.
func NewProjectHandler(projectService *services.ProjectService, boards boardEvictor) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		boards:         boards,
	}
}

// CreateProject creates a project owned by the caller.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	type CreateProjectRequest struct {
		Name        string  `json:"name" binding:"required,max=255"`
		Description string  `json:"description"`
		CoverImage  *string `json:"cover_image" binding:"omitempty,url,max=1024"`
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		OwnerID:     userID,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project, true))
}

// ListProjects lists the caller's projects with their role.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	memberships, err := h.projectService.ListProjectsForUser(c.Request.Context(), userID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	projects := make([]dto.ProjectWithRoleDTO, len(memberships))
	for i, m := range memberships {
		projects[i] = dto.ToProjectWithRoleDTO(m)
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// JoinProject joins a project with an invite code.
func (h *ProjectHandler) JoinProject(c *gin.Context) {
	type JoinProjectRequest struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req JoinProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.JoinProjectByInvite(c.Request.Context(), userID, req.InviteCode)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project, false))
}

// GetProject returns a project with its members.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	member, ok := middleware.GetProjectMember(c)
	if !ok {
		apierrors.Forbidden(c, "Project access required")
		return
	}

	project, members, err := h.projectService.GetProjectWithMembers(c.Request.Context(), member.ProjectID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDetailDTO(*project, members, member.Role))
}

// ListMembers lists the members of a project.
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	_, members, err := h.projectService.GetProjectWithMembers(c.Request.Context(), id)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	out := make([]dto.ProjectMemberDTO, len(members))
	for i, m := range members {
		out[i] = dto.ToProjectMemberDTO(m)
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

// UpdateProject updates project details (owner only).
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	type UpdateProjectRequest struct {
		Name        *string `json:"name" binding:"omitempty,max=255"`
		Description *string `json:"description"`
		CoverImage  *string `json:"cover_image" binding:"omitempty,url,max=1024"`
		ClearCover  bool    `json:"clear_cover"`
	}

	id, ok := projectID(c)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), id, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		ClearCover:  req.ClearCover,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project, true))
}

// ArchiveProject marks a project read-only (owner only).
func (h *ProjectHandler) ArchiveProject(c *gin.Context) {
	h.setArchived(c, true)
}

// UnarchiveProject makes an archived project editable again (owner only).
func (h *ProjectHandler) UnarchiveProject(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *ProjectHandler) setArchived(c *gin.Context, archived bool) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	project, err := h.projectService.SetArchived(c.Request.Context(), id, archived)
	if err != nil {
		respondProjectError(c, err)
		return
	}
	if h.boards != nil {
		h.boards.Forget(id)
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project, true))
}

// RegenerateInviteCode issues a new invite code (owner only).
func (h *ProjectHandler) RegenerateInviteCode(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	project, err := h.projectService.RegenerateInviteCode(c.Request.Context(), id)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invite_code": project.InviteCode})
}

// RemoveMember removes a contributor (owner only).
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := parseIDParam(c, "user_id", "user")
	if !ok {
		return
	}

	if err := h.projectService.RemoveMember(c.Request.Context(), id, actorID, targetID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidProjectName),
		errors.Is(err, services.ErrInvalidInviteCode),
		errors.Is(err, services.ErrCannotRemoveYourself):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrCannotRemoveOwner):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrProjectMemberNotFound),
		errors.Is(err, services.ErrNotProjectMember):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAlreadyProjectMember),
		errors.Is(err, services.ErrProjectArchived):
		apierrors.Conflict(c, err.Error())
	default:
		internalError(c, err)
	}
}
