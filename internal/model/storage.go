package model

import "context"

// Keys of the persisted client state.
const (
	TokenKey    = "token"
	LanguageKey = "language"
)

// StateStore persists small string values across process restarts.
// Get returns ErrNotFound for absent keys; Delete of an absent key is not an error.
type StateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
