package address

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// Length is the fixed size of every generated address.
	Length = 6
)

var base = big.NewInt(int64(len(alphabet)))

// Generate returns a new 6-character random base62 address. Addresses carry
// no uniqueness guarantee of their own; the links table enforces that.
func Generate() string {
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		idx, err := rand.Int(rand.Reader, base) // uniform in [0,62)
		if err != nil {
			// crypto/rand reading from the OS source does not fail in practice;
			// if it ever does there is no safe degraded mode for a public namespace.
			panic(err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String()
}
