package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Role is the user's authorisation level
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserID accepts both numeric and string ids from the backend.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// User is a record in the admin console
type User struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// UserUpdate is the admin edit form
type UserUpdate struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"notblank,email_simple"`
	Role  Role   `json:"role" validate:"oneof=user admin"`
}

// Profile is the signed-in user's own record
type Profile struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"notblank,email_simple"`
}
