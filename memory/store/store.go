// Package store persists per-user carts and dialogue context for the memory
// service.
package store

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid argument")
)

type LineItem struct {
	Item   string `json:"item"`
	Amount int    `json:"amount"`
}

// Repository is implemented by every storage backend. Each mutation is atomic
// per user.
type Repository interface {
	// Cart returns the user's items in insertion order; unknown users have an
	// empty cart.
	Cart(ctx context.Context, userID int64) ([]LineItem, error)
	// Context returns the user's transcript and whether the user exists.
	Context(ctx context.Context, userID int64) (string, bool, error)

	// AddItem creates or increments a line. A line whose amount drops to zero
	// or below is deleted.
	AddItem(ctx context.Context, userID int64, item string, amount int) error
	// RemoveItem deletes the line when amount >= stored amount, otherwise
	// decrements it. ErrNotFound when the line does not exist.
	RemoveItem(ctx context.Context, userID int64, item string, amount int) error
	// ClearCart deletes every line. ErrNotFound when the cart is already empty.
	ClearCart(ctx context.Context, userID int64) error

	// AppendContext creates the user with text or appends " "+text.
	AppendContext(ctx context.Context, userID int64, text string) error
	ReplaceContext(ctx context.Context, userID int64, text string) error
	// ClearContext deletes the user record. ErrNotFound when absent.
	ClearContext(ctx context.Context, userID int64) error
	// ClearUser deletes the user record and the cart. ErrNotFound when the
	// user record is absent.
	ClearUser(ctx context.Context, userID int64) error

	Ping(ctx context.Context) error
	Close() error
}

func validItem(item string) bool {
	return strings.TrimSpace(item) != ""
}
