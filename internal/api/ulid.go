package api

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// newULID generates a new ULID string for stored upload filenames.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}
