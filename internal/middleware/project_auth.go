package middleware

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-board-api/internal/constants"
	apierrors "github.com/yukikurage/project-board-api/internal/errors"
	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/services"
)

// ProjectAccess resolves projects and memberships for the access checks.
type ProjectAccess interface {
	GetProject(ctx context.Context, projectID uint64) (*models.Project, error)
	GetMembership(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error)
}

// RequireProjectAccess checks that the user is a member of the project in
// the :id parameter and stores the project and membership in the context.
func RequireProjectAccess(projects ProjectAccess) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project ID")
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		project, err := projects.GetProject(c.Request.Context(), projectID)
		if err != nil {
			if errors.Is(err, services.ErrProjectNotFound) {
				apierrors.NotFound(c, "Project not found")
				return
			}
			apierrors.InternalError(c, "Failed to load project")
			return
		}

		member, err := projects.GetMembership(c.Request.Context(), projectID, userID)
		if err != nil {
			// 404 rather than 403 so non-members cannot tell which projects exist
			if errors.Is(err, services.ErrNotProjectMember) {
				apierrors.NotFound(c, "Project not found")
				return
			}
			apierrors.InternalError(c, "Failed to verify membership")
			return
		}

		c.Set(constants.ContextKeyProject, *project)
		c.Set(constants.ContextKeyMember, *member)
		c.Next()
	}
}

// RequireProjectOwner allows only the project owner through. It must run
// after RequireProjectAccess.
func RequireProjectOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		member, ok := GetProjectMember(c)
		if !ok {
			apierrors.Forbidden(c, "Project access required")
			return
		}
		if member.Role != models.RoleOwner {
			apierrors.Forbidden(c, "Only the project owner can perform this action")
			return
		}
		c.Next()
	}
}

// RequireActiveProject rejects changes to archived projects. It must run
// after RequireProjectAccess.
func RequireActiveProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		project, ok := GetProject(c)
		if !ok {
			apierrors.Forbidden(c, "Project access required")
			return
		}
		if project.Status == models.ProjectStatusArchived {
			apierrors.Conflict(c, "Project is archived")
			return
		}
		c.Next()
	}
}

// GetProject returns the project stored by RequireProjectAccess.
func GetProject(c *gin.Context) (models.Project, bool) {
	v, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return models.Project{}, false
	}
	project, ok := v.(models.Project)
	return project, ok
}

// GetProjectMember returns the membership stored by RequireProjectAccess.
func GetProjectMember(c *gin.Context) (models.ProjectMember, bool) {
	v, exists := c.Get(constants.ContextKeyMember)
	if !exists {
		return models.ProjectMember{}, false
	}
	member, ok := v.(models.ProjectMember)
	return member, ok
}
