package handlers

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/tasknest/apiserver/internal/services"
	"github.com/tasknest/apiserver/internal/store"
	"github.com/tasknest/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[primitive.ObjectID]types.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[primitive.ObjectID]types.Task)}
}

func (f *fakeTaskRepo) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := make([]types.Task, 0)
	for _, task := range f.tasks {
		if task.User == owner {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (f *fakeTaskRepo) GetByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok || task.User != owner {
		return types.Task{}, store.ErrNotFound
	}
	return task, nil
}

func (f *fakeTaskRepo) Create(ctx context.Context, task types.Task) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task.ID = primitive.NewObjectID()
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeTaskRepo) UpdateByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID, update types.TaskUpdate) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok || task.User != owner {
		return types.Task{}, store.ErrNotFound
	}
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.DueDate != nil {
		task.DueDate = update.DueDate
	}
	if update.Completed != nil {
		task.Completed = *update.Completed
	}
	f.tasks[id] = task
	return task, nil
}

func (f *fakeTaskRepo) DeleteByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok || task.User != owner {
		return store.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func newTaskTestRouter() *chi.Mux {
	taskService := services.NewTaskService(newFakeTaskRepo(), nil)
	router := chi.NewRouter()
	router.Route("/api/tasks", func(r chi.Router) {
		TaskRouter(r, taskService, RequireAuth(testSecret))
	})
	return router
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := issueToken(userID, []byte(testSecret), 0)
	if err != nil {
		t.Fatalf("issueToken() error = %v", err)
	}
	return token
}

func TestTaskLifecycle(t *testing.T) {
	router := newTaskTestRouter()

	aliceID := primitive.NewObjectID().Hex()
	bobID := primitive.NewObjectID().Hex()
	aliceToken := tokenFor(t, aliceID)
	bobToken := tokenFor(t, bobID)

	// Alice creates a task.
	rec := doJSON(t, router, http.MethodPost, "/api/tasks", map[string]string{"title": "buy milk"}, aliceToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created types.Task
	decodeBody(t, rec, &created)
	if created.Completed {
		t.Error("new task should not be completed")
	}
	if created.User.Hex() != aliceID {
		t.Errorf("created.User = %q, want %q", created.User.Hex(), aliceID)
	}

	taskPath := "/api/tasks/" + created.ID.Hex()

	// Bob cannot see it.
	rec = doJSON(t, router, http.MethodGet, taskPath, nil, bobToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user get status = %d, want 404", rec.Code)
	}
	var notFound ErrorResponse
	decodeBody(t, rec, &notFound)
	if notFound.Error != "Task not found" {
		t.Errorf("error = %q, want %q", notFound.Error, "Task not found")
	}

	// Alice can.
	if rec = doJSON(t, router, http.MethodGet, taskPath, nil, aliceToken); rec.Code != http.StatusOK {
		t.Fatalf("owner get status = %d", rec.Code)
	}

	// Update the title.
	rec = doJSON(t, router, http.MethodPut, taskPath, map[string]string{"title": "buy oat milk"}, aliceToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated types.Task
	decodeBody(t, rec, &updated)
	if updated.Title != "buy oat milk" {
		t.Errorf("updated.Title = %q", updated.Title)
	}
	if updated.User.Hex() != aliceID {
		t.Errorf("update reassigned owner to %q", updated.User.Hex())
	}

	// Mark completed, then not.
	rec = doJSON(t, router, http.MethodPatch, taskPath, map[string]bool{"completed": true}, aliceToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rec.Code)
	}
	var patched types.Task
	decodeBody(t, rec, &patched)
	if !patched.Completed {
		t.Error("task should be completed after patch")
	}
	if patched.Title != "buy oat milk" {
		t.Errorf("patch changed title to %q", patched.Title)
	}

	rec = doJSON(t, router, http.MethodPatch, taskPath, map[string]bool{"completed": false}, aliceToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("second patch status = %d", rec.Code)
	}
	decodeBody(t, rec, &patched)
	if patched.Completed {
		t.Error("task should not be completed after second patch")
	}

	// Delete, then delete again.
	rec = doJSON(t, router, http.MethodDelete, taskPath, nil, aliceToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	var deleted MessageResponse
	decodeBody(t, rec, &deleted)
	if deleted.Message != "Success!" {
		t.Errorf("message = %q, want %q", deleted.Message, "Success!")
	}

	if rec = doJSON(t, router, http.MethodDelete, taskPath, nil, aliceToken); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestTaskRoutesRequireAuth(t *testing.T) {
	router := newTaskTestRouter()
	taskID := primitive.NewObjectID().Hex()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodGet, "/api/tasks/" + taskID},
		{http.MethodPut, "/api/tasks/" + taskID},
		{http.MethodPatch, "/api/tasks/" + taskID},
		{http.MethodDelete, "/api/tasks/" + taskID},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := doJSON(t, router, tt.method, tt.path, nil, "")
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			var resp MessageResponse
			decodeBody(t, rec, &resp)
			if resp.Message != "No token, authorization denied" {
				t.Errorf("message = %q, want %q", resp.Message, "No token, authorization denied")
			}
		})
	}
}

func TestAddTaskValidation(t *testing.T) {
	router := newTaskTestRouter()
	token := tokenFor(t, primitive.NewObjectID().Hex())

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "missing title", body: map[string]string{"description": "no title"}},
		{name: "blank title", body: map[string]string{"title": "   "}},
		{name: "bad due date", body: map[string]string{"title": "ok", "dueDate": "someday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/tasks", tt.body, token)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp ValidationErrorResponse
			decodeBody(t, rec, &resp)
			if len(resp.Errors) == 0 {
				t.Error("expected validation errors in response")
			}
		})
	}
}

func TestAddTaskIgnoresSuppliedOwner(t *testing.T) {
	router := newTaskTestRouter()
	aliceID := primitive.NewObjectID().Hex()
	token := tokenFor(t, aliceID)

	rec := doJSON(t, router, http.MethodPost, "/api/tasks", map[string]string{
		"title": "sneaky",
		"user":  primitive.NewObjectID().Hex(),
	}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created types.Task
	decodeBody(t, rec, &created)
	if created.User.Hex() != aliceID {
		t.Errorf("created.User = %q, want authenticated id %q", created.User.Hex(), aliceID)
	}
}

func TestTaskInvalidIDFormat(t *testing.T) {
	router := newTaskTestRouter()
	token := tokenFor(t, primitive.NewObjectID().Hex())

	rec := doJSON(t, router, http.MethodGet, "/api/tasks/not-a-hex-id", nil, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Error != "Invalid ID format" {
		t.Errorf("error = %q, want %q", resp.Error, "Invalid ID format")
	}
}

func TestPatchRequiresCompletedFlag(t *testing.T) {
	router := newTaskTestRouter()
	token := tokenFor(t, primitive.NewObjectID().Hex())

	rec := doJSON(t, router, http.MethodPatch, "/api/tasks/"+primitive.NewObjectID().Hex(), map[string]string{}, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ValidationErrorResponse
	decodeBody(t, rec, &resp)
	if len(resp.Errors) == 0 {
		t.Error("expected validation errors in response")
	}
}
