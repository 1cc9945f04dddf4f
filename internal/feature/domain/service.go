package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	IsActive(ctx context.Context, name string) (bool, error)
	Activate(ctx context.Context, name string) (*Response, error)
	Deactivate(ctx context.Context, name string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
}

type ListRequest struct {
	Prefix string
	Active *bool
}

type Response struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrInvalidName = errors.New("invalid_flag_name")
	ErrNotFound    = errors.New("not_found")
	// ErrConflict means a concurrent update to the same flag won.
	ErrConflict = errors.New("flag_conflict")
)
