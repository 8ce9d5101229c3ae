package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Screen is a named canvas page
type Screen struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// NewScreen creates a screen with a fresh id
func NewScreen(name string, active bool) Screen {
	return Screen{
		ID:       uuid.New().String(),
		Name:     name,
		IsActive: active,
	}
}

// DefaultScreenName returns the default name for the n-th screen (Screen1, Screen2, ...)
func DefaultScreenName(n int) string {
	return fmt.Sprintf("Screen%d", n)
}
