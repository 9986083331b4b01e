package services

import (
	"context"
	"strings"
	"time"

	"github.com/tasknest/apiserver/internal/notify"
	"github.com/tasknest/apiserver/internal/store"
	"github.com/tasknest/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const publishTimeout = 5 * time.Second

// TaskRepository defines persistence operations for tasks. Single-task
// operations take both the task id and the owner id so the ownership check
// is part of the lookup predicate itself.
type TaskRepository interface {
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]types.Task, error)
	GetByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID) (types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	UpdateByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID, update types.TaskUpdate) (types.Task, error)
	DeleteByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID) error
}

// EventPublisher publishes task lifecycle events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event notify.Event) error
}

// TaskService encapsulates task use-cases. Every operation is scoped to the
// authenticated caller's id; ids supplied in request bodies are never
// trusted.
type TaskService struct {
	repo      TaskRepository
	publisher EventPublisher
}

// NewTaskService constructs a TaskService. The publisher may be nil, in
// which case no events are emitted.
func NewTaskService(repo TaskRepository, publisher EventPublisher) *TaskService {
	return &TaskService{repo: repo, publisher: publisher}
}

func (s *TaskService) List(ctx context.Context, userID string) ([]types.Task, error) {
	owner, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, owner)
}

func (s *TaskService) Get(ctx context.Context, taskID, userID string) (types.Task, error) {
	id, owner, err := parseIDs(taskID, userID)
	if err != nil {
		return types.Task{}, err
	}
	return s.repo.GetByIDAndOwner(ctx, id, owner)
}

// Create persists a new task owned by the caller. The owner comes from the
// authenticated user id only and completed always starts false.
func (s *TaskService) Create(ctx context.Context, userID, title, description string, dueDate *time.Time) (types.Task, error) {
	owner, err := parseID(userID)
	if err != nil {
		return types.Task{}, err
	}

	task, err := s.repo.Create(ctx, types.Task{
		User:        owner,
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Completed:   false,
	})
	if err != nil {
		return types.Task{}, err
	}

	s.publish(notify.EventCreated, task)
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, taskID, userID string, update types.TaskUpdate) (types.Task, error) {
	id, owner, err := parseIDs(taskID, userID)
	if err != nil {
		return types.Task{}, err
	}

	task, err := s.repo.UpdateByIDAndOwner(ctx, id, owner, update)
	if err != nil {
		return types.Task{}, err
	}

	s.publish(notify.EventUpdated, task)
	return task, nil
}

// SetCompleted flips the completed flag through the same ownership-scoped
// atomic update as Update.
func (s *TaskService) SetCompleted(ctx context.Context, taskID, userID string, completed bool) (types.Task, error) {
	id, owner, err := parseIDs(taskID, userID)
	if err != nil {
		return types.Task{}, err
	}

	task, err := s.repo.UpdateByIDAndOwner(ctx, id, owner, types.TaskUpdate{Completed: &completed})
	if err != nil {
		return types.Task{}, err
	}

	if completed {
		s.publish(notify.EventCompleted, task)
	} else {
		s.publish(notify.EventUpdated, task)
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, taskID, userID string) error {
	id, owner, err := parseIDs(taskID, userID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteByIDAndOwner(ctx, id, owner); err != nil {
		return err
	}

	s.publish(notify.EventDeleted, types.Task{ID: id, User: owner})
	return nil
}

// publish emits an event best-effort on a detached context so a broker
// outage never fails the originating request.
func (s *TaskService) publish(kind string, task types.Task) {
	if s.publisher == nil {
		return
	}

	event := notify.Event{
		Kind:    kind,
		TaskID:  task.ID.Hex(),
		UserID:  task.User.Hex(),
		Title:   task.Title,
		DueDate: task.DueDate,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		_ = s.publisher.Publish(ctx, event)
	}()
}

func parseID(hexID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hexID))
	if err != nil {
		return primitive.NilObjectID, store.ErrInvalidID
	}
	return id, nil
}

func parseIDs(taskID, userID string) (primitive.ObjectID, primitive.ObjectID, error) {
	id, err := parseID(taskID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	owner, err := parseID(userID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	return id, owner, nil
}
