// Package shop is a fixture for the source provider tests.
package shop

import (
	"context"
	"time"
)

// AsyncResponse completes a request asynchronously.
type AsyncResponse struct{}

// Base carries fields shared by stored entities.
type Base struct {
	ID      int64     `json:"id"`
	Created time.Time `json:"created"`
}

// User is a stored user.
type User struct {
	Base
	Name     string            `json:"name"`
	Age      *int32            `json:"age,omitempty"`
	Tags     []string          `json:"tags"`
	Scores   [][]float64       `json:"scores"`
	Avatar   []byte            `json:"avatar"`
	Attrs    map[string]string `json:"attrs"`
	Pet      Pet               `json:"pet"`
	Status   Status            `json:"status"`
	Initial  rune              `json:"initial"`
	Password string            `json:"-"`
	internal int
}

// Status is a named string.
type Status string

// Pet is implemented by animals.
type Pet interface {
	Sound() string
}

// Page is a generic page of results.
type Page[T any] struct {
	Items []T `json:"items"`
	Next  string
}

type secret struct {
	Value string
}

// Users serves user resources.
//
//rest:path /users
//rest:produces application/json
type Users struct{}

//rest:get /{id}
//rest:params path=id
func (Users) Get(ctx context.Context, id string) (*User, error) { return nil, nil }

//rest:post
func (Users) Create(ctx context.Context, u User) error { return nil }

//rest:get
//rest:params query=cursor
func (Users) List(ctx context.Context, cursor string) (Page[User], error) {
	return Page[User]{}, nil
}

//rest:get /events
func (Users) Events(ctx context.Context) (<-chan User, error) { return nil, nil }

//rest:put /{id}/wait
//rest:params path=id
func (Users) Wait(ctx context.Context, id string, resp *AsyncResponse) {}

//rest:path /secret
func (Users) Secret() secret { return secret{} }
