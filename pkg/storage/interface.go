package storage

import (
	"context"

	"github.com/google/uuid"
)

// LinkStorage is the persistence contract for links. Liveness ("expired_at
// in the future") is always judged against the database clock, never the
// caller's, so clock skew between app and store cannot resurrect or bury a
// link. Lookups report absence as (nil, nil); the store never retries
// internally.
type LinkStorage interface {
	// Create inserts the link and fills its store-assigned timestamps.
	// Returns ErrAddressTaken if the address is already in use.
	Create(ctx context.Context, link *Link) error

	// GetByAddress returns the link only while it is live.
	GetByAddress(ctx context.Context, address string) (*Link, error)

	// MarkVisited atomically sets visited and returns the link, only while
	// it is live. Flip and read happen in one statement so two concurrent
	// redirects can never both observe visited=false.
	MarkVisited(ctx context.Context, address string) (*Link, error)

	// GetByID returns the link regardless of expiry state.
	GetByID(ctx context.Context, id uuid.UUID) (*Link, error)

	// DeleteExpired removes every link whose expiry has passed and reports
	// how many were removed. Running it with nothing expired deletes zero
	// rows and is not an error.
	DeleteExpired(ctx context.Context) (int64, error)
}
