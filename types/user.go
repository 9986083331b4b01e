package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user.
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	// Username is the unique login name chosen by the user.
	// It is treated as an email address.
	Username string `json:"username" bson:"username"`

	// Password stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	Password string `json:"-" bson:"password"`

	// Fullname is the user's display or full name.
	Fullname string `json:"fullname" bson:"fullname"`
}
