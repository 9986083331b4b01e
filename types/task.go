package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task represents a single to-do item owned by a user.
type Task struct {
	// ID is the unique identifier of the task.
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	// User is the identifier of the owning user. It is set from the
	// authenticated caller at creation and never reassigned.
	User primitive.ObjectID `json:"user" bson:"user"`

	// Title is the human-readable name of the task.
	Title string `json:"title" bson:"title"`

	// Description contains optional free-form detail about the task.
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	// DueDate is the optional date by which the task should be done.
	DueDate *time.Time `json:"dueDate,omitempty" bson:"dueDate,omitempty"`

	// Completed indicates whether the task has been marked done.
	Completed bool `json:"completed" bson:"completed"`
}

// TaskUpdate carries the fields of a task that may change after creation.
// A nil field is left untouched. The owner is deliberately absent.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Completed   *bool
}
