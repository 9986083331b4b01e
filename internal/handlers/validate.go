package handlers

import (
	"net/http"
	"net/mail"
	"strings"
	"time"
)

const minPasswordLength = 6

// FieldError describes a single failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the payload for failed input validation.
type ValidationErrorResponse struct {
	Errors []FieldError `json:"errors"`
}

func writeValidationErrors(w http.ResponseWriter, errs []FieldError) {
	writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{Errors: errs})
}

func validateRegister(req RegisterRequest) []FieldError {
	errs := validateCredentials(req.Username, req.Password)
	if strings.TrimSpace(req.Fullname) == "" {
		errs = append(errs, FieldError{Field: "fullname", Message: "Fullname is required"})
	}
	return errs
}

func validateLogin(req LoginRequest) []FieldError {
	return validateCredentials(req.Username, req.Password)
}

func validateCredentials(username, password string) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(username) == "" {
		errs = append(errs, FieldError{Field: "username", Message: "Username is required"})
	} else if _, err := mail.ParseAddress(username); err != nil {
		errs = append(errs, FieldError{Field: "username", Message: "Must provide a valid email"})
	}

	if password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "Password is required"})
	} else if len(password) < minPasswordLength {
		errs = append(errs, FieldError{Field: "password", Message: "Password must be at least 6 characters long"})
	}

	return errs
}

// validateTaskInput checks the create/update body and parses the optional
// due date. Titles are required, descriptions free-form.
func validateTaskInput(req TaskRequest) (*time.Time, []FieldError) {
	var errs []FieldError

	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "Title for this task is required"})
	}

	var dueDate *time.Time
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		parsed, ok := parseDate(*req.DueDate)
		if !ok {
			errs = append(errs, FieldError{Field: "dueDate", Message: "Invalid date format"})
		} else {
			dueDate = &parsed
		}
	}

	return dueDate, errs
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
