// Package quotas persists the server-side monthly upload counters keyed by
// client id and calendar month.
package quotas

import "context"

type Repository interface {
	// Reserve takes one upload slot for clientID in period. It fails with
	// common.ErrMonthlyLimitReached once limit slots are taken.
	Reserve(ctx context.Context, clientID, period string, limit int64) error
	// Release gives back a slot taken by Reserve. It never goes below zero.
	Release(ctx context.Context, clientID, period string) error
	Used(ctx context.Context, clientID, period string) (int64, error)
}
