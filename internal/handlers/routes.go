package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-board-api/internal/middleware"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	Project   *ProjectHandler
	Board     *BoardHandler
	Task      *TaskHandler
	Content   *ContentHandler
	Dashboard *DashboardHandler
}

// RegisterRoutes mounts the API on r. Session middleware must already be
// installed.
func RegisterRoutes(r *gin.Engine, h Handlers, projects middleware.ProjectAccess) {
	if h.Health != nil {
		r.GET("/health", h.Health.Health)
	}

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(), h.Auth.GetCurrentUser)
		auth.PATCH("/me", middleware.RequireAuth(), h.Auth.UpdateProfile)
		auth.PUT("/password", middleware.RequireAuth(), h.Auth.ChangePassword)
	}

	projectsGroup := api.Group("/projects")
	projectsGroup.Use(middleware.RequireAuth())
	{
		projectsGroup.POST("", h.Project.CreateProject)
		projectsGroup.GET("", h.Project.ListProjects)
		projectsGroup.POST("/join", h.Project.JoinProject)
	}

	project := projectsGroup.Group("/:id")
	project.Use(middleware.RequireProjectAccess(projects))
	{
		project.GET("", h.Project.GetProject)
		project.GET("/members", h.Project.ListMembers)
		project.GET("/board", h.Board.GetBoard)
		project.GET("/board/ws", h.Board.BoardSocket)
		project.GET("/tasks", h.Task.ListTasks)
		project.GET("/tasks/:task_id", h.Task.GetTask)
		project.GET("/notes", h.Content.ListNotes)
		project.GET("/links", h.Content.ListLinks)
		project.GET("/dashboard", h.Dashboard.GetDashboard)
	}

	owner := project.Group("")
	owner.Use(middleware.RequireProjectOwner())
	{
		owner.PATCH("", h.Project.UpdateProject)
		owner.POST("/archive", h.Project.ArchiveProject)
		owner.POST("/unarchive", h.Project.UnarchiveProject)
		owner.POST("/regenerate-code", h.Project.RegenerateInviteCode)
		owner.DELETE("/members/:user_id", h.Project.RemoveMember)
	}

	write := project.Group("")
	write.Use(middleware.RequireActiveProject())
	{
		write.POST("/columns", h.Board.CreateColumn)
		write.PATCH("/columns/:column_id", h.Board.UpdateColumn)
		write.DELETE("/columns/:column_id", h.Board.DeleteColumn)
		write.POST("/columns/:column_id/move", h.Board.MoveColumn)

		write.POST("/cards", h.Board.CreateCard)
		write.POST("/cards/suggest", h.Board.SuggestCards)
		write.PATCH("/cards/:card_id", h.Board.UpdateCard)
		write.DELETE("/cards/:card_id", h.Board.DeleteCard)
		write.POST("/cards/:card_id/move", h.Board.MoveCard)
		write.PUT("/cards/:card_id/completion", h.Board.SetCardCompletion)

		write.POST("/tasks", h.Task.CreateTask)
		write.PATCH("/tasks/:task_id", h.Task.UpdateTask)
		write.DELETE("/tasks/:task_id", h.Task.DeleteTask)
		write.PUT("/tasks/:task_id/completion", h.Task.SetTaskCompletion)

		write.POST("/notes", h.Content.CreateNote)
		write.PATCH("/notes/:note_id", h.Content.UpdateNote)
		write.DELETE("/notes/:note_id", h.Content.DeleteNote)

		write.POST("/links", h.Content.CreateLink)
		write.PATCH("/links/:link_id", h.Content.UpdateLink)
		write.DELETE("/links/:link_id", h.Content.DeleteLink)
	}
}
