package store

import (
	"context"
	"errors"

	"github.com/tasknest/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const taskCollection = "tasks"

// TaskRepository handles persistence for tasks. Every lookup and mutation
// that addresses a single task filters on both _id and user, so a non-owner
// observes the same ErrNotFound as a missing task.
type TaskRepository struct {
	coll *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{coll: db.Collection(taskCollection)}
}

func (r *TaskRepository) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]types.Task, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user": owner})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := make([]types.Task, 0)
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) GetByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID) (types.Task, error) {
	var task types.Task
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "user": owner}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	result, err := r.coll.InsertOne(ctx, task)
	if err != nil {
		return types.Task{}, err
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		task.ID = id
	}
	return task, nil
}

// UpdateByIDAndOwner applies the provided fields to the task in a single
// find-and-update call, so a concurrent delete races to one of two clean
// outcomes. It returns the task as it is after the update.
func (r *TaskRepository) UpdateByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID, update types.TaskUpdate) (types.Task, error) {
	set := bson.M{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.DueDate != nil {
		set["dueDate"] = *update.DueDate
	}
	if update.Completed != nil {
		set["completed"] = *update.Completed
	}
	if len(set) == 0 {
		return r.GetByIDAndOwner(ctx, id, owner)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var task types.Task
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "user": owner}, bson.M{"$set": set}, opts).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

func (r *TaskRepository) DeleteByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "user": owner})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
