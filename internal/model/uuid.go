package model

import "github.com/google/uuid"

// NewID creates a new item ID.
func NewID() string {
	return uuid.New().String()
}
