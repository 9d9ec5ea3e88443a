// Package clock provides the injectable time source design note §9 calls
// for: every component that stamps a registration date, an issuance time,
// or an audit timestamp takes a clock.Clock instead of calling time.Now()
// directly, so tests can control time deterministically.
package clock

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is a monotonic, non-decreasing source of wall-clock time.
type Clock interface {
	Now() time.Time
}

// New returns the real, system-backed clock.
func New() Clock {
	return clock.New()
}

// NewMock returns a clock.Mock usable in tests to pin and advance time
// deterministically (see github.com/benbjohnson/clock).
func NewMock() *clock.Mock {
	return clock.NewMock()
}
