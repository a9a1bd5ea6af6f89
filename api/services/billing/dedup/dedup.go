// Package dedup tracks gateway event ids that are being or have been processed.
// Entries expire after a retention window longer than the gateway's redelivery window.
package dedup

import "context"

// Set is a bounded-retention set of event ids.
type Set interface {
	// Claim marks id as taken. It reports false when id was already claimed and not yet expired.
	Claim(ctx context.Context, id string) (bool, error)
	// Release forgets id so a redelivery is processed again.
	Release(ctx context.Context, id string) error
}
