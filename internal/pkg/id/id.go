package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time and carry
// 80 bits of crypto randomness, which makes them safe as opaque client ids.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
