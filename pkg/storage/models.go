package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Link is the only entity this service stores. Address and target are
// immutable after creation; Visited is the only field that ever changes, and
// it only ever goes from false to true.
type Link struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Address   string    `json:"address" db:"address"`
	Target    string    `json:"target" db:"target"`
	Visited   bool      `json:"visited" db:"visited"`
	ExpiredAt time.Time `json:"expired_at" db:"expired_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ErrAddressTaken reports a uniqueness violation on the address column. The
// creation path recovers from it by generating a fresh address; every other
// storage error is fatal to the request.
var ErrAddressTaken = errors.New("address already taken")

// IsAddressTaken reports whether err is an address uniqueness conflict.
func IsAddressTaken(err error) bool { return errors.Is(err, ErrAddressTaken) }
