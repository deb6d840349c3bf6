// Package usage persists the client's monthly upload counter. Periods are
// calendar months in UTC ("2006-01").
package usage

import "context"

type Repository interface {
	// Count returns the uploads recorded for period, 0 when none.
	Count(ctx context.Context, period string) (int, error)
	// Increment adds one upload to period and returns the new total.
	Increment(ctx context.Context, period string) (int, error)
	// History lists all recorded periods.
	History(ctx context.Context) (map[string]int, error)
}
