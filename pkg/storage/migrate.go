package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The unique constraint on address is what turns concurrent collisions into
// ErrAddressTaken, and the expired_at index is what keeps the reaper's range
// delete off a sequential scan.
const schema = `
CREATE TABLE IF NOT EXISTS links (
	id         uuid PRIMARY KEY,
	address    text NOT NULL UNIQUE,
	target     text NOT NULL,
	visited    boolean NOT NULL DEFAULT FALSE,
	expired_at timestamptz NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS links_expired_at_idx ON links (expired_at);
`

// Migrate creates the links table and its indexes if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate links schema: %w", err)
	}
	return nil
}
