package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TaskService описывает операции над задачами, доступные HTTP слою
type TaskService interface {
	Create(ctx context.Context, callerID uuid.UUID, in service.CreateTaskInput) (*model.Task, error)
	List(ctx context.Context, callerID uuid.UUID) ([]model.Task, error)
	Get(ctx context.Context, callerID, taskID uuid.UUID) (*model.Task, error)
	SetCompleted(ctx context.Context, callerID, taskID uuid.UUID, completed bool) (*model.Task, error)
	Delete(ctx context.Context, callerID, taskID uuid.UUID) (service.DeleteOutcome, error)
	Share(ctx context.Context, callerID, taskID, targetID uuid.UUID) (*model.Task, error)
}

var _ TaskService = (*service.TaskService)(nil)

type TaskHandler struct {
	tasks TaskService
	auth  *Authenticator
}

func NewTaskHandler(tasks TaskService, auth *Authenticator) *TaskHandler {
	return &TaskHandler{tasks: tasks, auth: auth}
}

// CreateTaskRequest представляет запрос на создание задачи
type CreateTaskRequest struct {
	Title     string `json:"title" binding:"required"`
	Recurring bool   `json:"recurring"`
	Frequency string `json:"frequency"`
}

// UpdateTaskRequest представляет запрос на изменение статуса задачи
type UpdateTaskRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// ShareTaskRequest представляет запрос на предоставление доступа к задаче
type ShareTaskRequest struct {
	UserIDToShare string `json:"userIdToShare" binding:"required,uuid"`
}

// TaskResponse представляет ответ с данными задачи
type TaskResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Completed   bool     `json:"completed"`
	UserID      string   `json:"userId"`
	Recurring   bool     `json:"recurring"`
	Frequency   string   `json:"frequency"`
	NextDueDate *string  `json:"nextDueDate,omitempty"`
	SharedWith  []string `json:"sharedWith"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// DeleteTaskResponse сообщает, была ли задача удалена или только отозван доступ
type DeleteTaskResponse struct {
	Message string `json:"message"`
	Outcome string `json:"outcome"`
}

// ShareTaskResponse возвращается после успешного предоставления доступа
type ShareTaskResponse struct {
	Message string       `json:"message"`
	Task    TaskResponse `json:"task"`
}

func newTaskResponse(task *model.Task) TaskResponse {
	response := TaskResponse{
		ID:         task.ID.String(),
		Title:      task.Title,
		Completed:  task.Completed,
		UserID:     task.UserID.String(),
		Recurring:  task.Recurring,
		Frequency:  string(task.Frequency),
		SharedWith: append([]string{}, task.SharedWith...),
		CreatedAt:  task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  task.UpdatedAt.Format(time.RFC3339),
	}

	if task.NextDueDate != nil {
		nextDueDate := task.NextDueDate.Format(time.RFC3339)
		response.NextDueDate = &nextDueDate
	}

	return response
}

// Create создает новую задачу
// @Summary      Create task
// @Tags         Tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        task  body      CreateTaskRequest  true  "Task"
// @Success      201   {object}  TaskResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	callerID, ok := h.auth.Caller(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), callerID, service.CreateTaskInput{
		Title:     req.Title,
		Recurring: req.Recurring,
		Frequency: model.Frequency(req.Frequency),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(task))
}

// GetAll возвращает задачи пользователя и задачи, которыми с ним поделились
// @Summary      List tasks
// @Tags         Tasks
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   TaskResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /tasks [get]
func (h *TaskHandler) GetAll(c *gin.Context) {
	callerID, ok := h.auth.Caller(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), callerID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		response = append(response, newTaskResponse(&tasks[i]))
	}

	c.JSON(http.StatusOK, response)
}

// GetByID получает задачу по ID
// @Summary      Get task
// @Tags         Tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  TaskResponse
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	callerID, ok := h.auth.Caller(c)
	if !ok {
		return
	}

	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), callerID, taskID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

// Update меняет статус выполнения задачи
// @Summary      Update task completion
// @Tags         Tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Task ID"
// @Param        task  body      UpdateTaskRequest  true  "Completion"
// @Success      200   {object}  TaskResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	callerID, ok := h.auth.Caller(c)
	if !ok {
		return
	}

	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field completed is required"})
		return
	}

	task, err := h.tasks.SetCompleted(c.Request.Context(), callerID, taskID, *req.Completed)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

// Delete удаляет задачу владельца или отзывает доступ соавтора
// @Summary      Delete or unshare task
// @Tags         Tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  DeleteTaskResponse
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	callerID, ok := h.auth.Caller(c)
	if !ok {
		return
	}

	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	outcome, err := h.tasks.Delete(c.Request.Context(), callerID, taskID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	message := "Task deleted"
	if outcome == service.OutcomeUnshared {
		message = "Task unshared"
	}

	c.JSON(http.StatusOK, DeleteTaskResponse{Message: message, Outcome: string(outcome)})
}

// Share предоставляет другому пользователю доступ к задаче
// @Summary      Share task
// @Tags         Tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id     path      string            true  "Task ID"
// @Param        share  body      ShareTaskRequest  true  "Target user"
// @Success      200    {object}  ShareTaskResponse
// @Failure      400    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /tasks/{id}/share [post]
func (h *TaskHandler) Share(c *gin.Context) {
	callerID, ok := h.auth.Caller(c)
	if !ok {
		return
	}

	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	var req ShareTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	targetID, err := uuid.Parse(req.UserIDToShare)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	task, err := h.tasks.Share(c.Request.Context(), callerID, taskID, targetID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ShareTaskResponse{
		Message: "Task shared successfully",
		Task:    newTaskResponse(task),
	})
}

func parseTaskID(c *gin.Context) (uuid.UUID, bool) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return uuid.Nil, false
	}
	return taskID, true
}

// writeServiceError переводит ошибки сервиса в HTTP ответ
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyShared):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task already shared with this user"})
	case errors.Is(err, service.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
