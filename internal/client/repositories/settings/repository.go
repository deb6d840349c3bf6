// Package settings is a small persistent key/value store for client state
// that must survive restarts, such as the resolved subscription tier.
package settings

import "context"

const (
	KeyTier     = "tier"
	KeyClientID = "client_id"
)

type Repository interface {
	// Get returns ok=false when key was never set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
