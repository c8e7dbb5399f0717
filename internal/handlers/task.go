package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-board-api/internal/board"
	"github.com/yukikurage/project-board-api/internal/dto"
	apierrors "github.com/yukikurage/project-board-api/internal/errors"
	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/realtime"
	"github.com/yukikurage/project-board-api/internal/services"
)

// TaskHandler handles calendar task HTTP requests.
type TaskHandler struct {
	taskService *services.TaskService
	publisher   services.Publisher
}

// NewTaskHandler creates a new TaskHandler. publisher may be nil.
func NewTaskHandler(taskService *services.TaskService, publisher services.Publisher) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		publisher:   publisher,
	}
}

// ListTasks lists tasks of the project, optionally between date_from and
// date_to (YYYY-MM-DD, inclusive) and by status.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}

	from, err := parseDate(c.Query("date_from"))
	if err != nil {
		apierrors.BadRequest(c, "date_from must use YYYY-MM-DD")
		return
	}
	to, err := parseDate(c.Query("date_to"))
	if err != nil {
		apierrors.BadRequest(c, "date_to must use YYYY-MM-DD")
		return
	}

	input := services.ListTasksInput{DateFrom: from, DateTo: to}
	if s := c.Query("status"); s != "" {
		status := models.TaskStatus(s)
		input.Status = &status
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), pid, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks))
}

// CreateTask schedules a task on a day.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title       string            `json:"title" binding:"required,max=255"`
		Description string            `json:"description"`
		TaskDate    string            `json:"task_date" binding:"required"`
		StartTime   *string           `json:"start_time"`
		EndTime     *string           `json:"end_time"`
		Status      models.TaskStatus `json:"status"`
	}

	pid, ok := projectID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	day, err := parseDate(req.TaskDate)
	if err != nil || day == nil {
		apierrors.BadRequest(c, "task_date must use YYYY-MM-DD")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), pid, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		TaskDate:    *day,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      req.Status,
		CreatorID:   userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.publish(c, pid, userID, task)
	c.JSON(http.StatusCreated, task)
}

// GetTask returns one task.
func (h *TaskHandler) GetTask(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "task_id", "task")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), pid, taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTask edits a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	type UpdateTaskRequest struct {
		Title          *string            `json:"title" binding:"omitempty,max=255"`
		Description    *string            `json:"description"`
		TaskDate       *string            `json:"task_date"`
		StartTime      *string            `json:"start_time"`
		ClearStartTime bool               `json:"clear_start_time"`
		EndTime        *string            `json:"end_time"`
		ClearEndTime   bool               `json:"clear_end_time"`
		Status         *models.TaskStatus `json:"status"`
	}

	pid, ok := projectID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "task_id", "task")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		StartTime:      req.StartTime,
		ClearStartTime: req.ClearStartTime,
		EndTime:        req.EndTime,
		ClearEndTime:   req.ClearEndTime,
		Status:         req.Status,
	}
	if req.TaskDate != nil {
		day, err := parseDate(*req.TaskDate)
		if err != nil || day == nil {
			apierrors.BadRequest(c, "task_date must use YYYY-MM-DD")
			return
		}
		input.TaskDate = day
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), pid, taskID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.publish(c, pid, userID, task)
	c.JSON(http.StatusOK, task)
}

// DeleteTask deletes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	pid, ok := projectID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "task_id", "task")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), pid, taskID); err != nil {
		respondTaskError(c, err)
		return
	}

	h.publish(c, pid, userID, gin.H{"id": taskID, "deleted": true})
	c.Status(http.StatusNoContent)
}

// SetTaskCompletion marks a task done or pending.
func (h *TaskHandler) SetTaskCompletion(c *gin.Context) {
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
	taskID, ok := parseIDParam(c, "task_id", "task")
	if !ok {
		return
	}

	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	completion, err := h.taskService.SetTaskCompleted(c.Request.Context(), pid, taskID, *req.Completed)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.publish(c, pid, userID, completion)
	c.JSON(http.StatusOK, completion)
}

func (h *TaskHandler) publish(c *gin.Context, projectID, userID uint64, data any) {
	if h.publisher == nil {
		return
	}
	h.publisher.Publish(realtime.Message{
		Type:      realtime.TypeTaskChanged,
		ProjectID: projectID,
		Data:      data,
		User:      userID,
	})
}

func respondTaskError(c *gin.Context, err error) {
	var persistErr *board.PersistError

	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidTaskStatus),
		errors.Is(err, services.ErrInvalidClockTime),
		errors.Is(err, services.ErrInvalidTimeRange),
		errors.Is(err, services.ErrInvalidDateRange):
		apierrors.BadRequest(c, err.Error())
	case errors.As(err, &persistErr):
		_ = c.Error(err)
		apierrors.OperationFailed(c, "", gin.H{
			"op":        persistErr.Op,
			"entity_id": persistErr.EntityID,
		})
	default:
		internalError(c, err)
	}
}
