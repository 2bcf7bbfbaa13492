package store

import (
	"context"
	"errors"
)

// Region is one key/value storage area. The durable region survives process
// restarts; the session region lives as long as the client process.
type Region interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

var ErrItemNotFound = errors.New("item does not exist")
