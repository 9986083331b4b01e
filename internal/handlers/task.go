package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tasknest/apiserver/internal/services"
	"github.com/tasknest/apiserver/internal/store"
	"github.com/tasknest/apiserver/types"
)

// TaskHandler provides HTTP handlers for tasks. Every operation resolves
// the owner from the authenticated context, never from the request.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler constructs a handler with the provided service.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// TaskRouter registers task routes on the given router, all behind the
// auth middleware.
func TaskRouter(r chi.Router, taskService *services.TaskService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTaskHandler(taskService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListTasks)
	r.Post("/", handler.AddTask)
	r.Route("/{taskID}", func(r chi.Router) {
		r.Get("/", handler.GetTask)
		r.Put("/", handler.UpdateTask)
		r.Patch("/", handler.PatchTaskStatus)
		r.Delete("/", handler.DeleteTask)
	})
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}

	tasks, err := h.taskService.List(r.Context(), userID)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}

	task, err := h.taskService.Get(r.Context(), chi.URLParam(r, "taskID"), userID)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	dueDate, errs := validateTaskInput(req)
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	description := ""
	if req.Description != nil {
		description = *req.Description
	}

	task, err := h.taskService.Create(r.Context(), userID, strings.TrimSpace(*req.Title), description, dueDate)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	dueDate, errs := validateTaskInput(req)
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	// Only the fields present in the body are replaced. The owner is not
	// part of the update type at all.
	title := strings.TrimSpace(*req.Title)
	update := types.TaskUpdate{
		Title:       &title,
		Description: req.Description,
		DueDate:     dueDate,
		Completed:   req.Completed,
	}

	task, err := h.taskService.Update(r.Context(), chi.URLParam(r, "taskID"), userID, update)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) PatchTaskStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}

	var req PatchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Completed == nil {
		writeValidationErrors(w, []FieldError{{Field: "completed", Message: "Completed flag is required"}})
		return
	}

	task, err := h.taskService.SetCompleted(r.Context(), chi.URLParam(r, "taskID"), userID, *req.Completed)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}

	if err := h.taskService.Delete(r.Context(), chi.URLParam(r, "taskID"), userID); err != nil {
		writeTaskError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Success!")
}

// TaskRequest is the create/update body. Pointer fields distinguish absent
// from empty.
type TaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Completed   *bool   `json:"completed"`
}

// PatchStatusRequest is the single-field patch body.
type PatchStatusRequest struct {
	Completed *bool `json:"completed"`
}

func writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid ID format")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
