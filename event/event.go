// Package event defines ValidatedEvent, the immutable value object the
// off-chain intelligence pipeline hands to the Event Factory.
package event

// Severity is the disaster severity tag produced by the off-chain pipeline.
// Any value outside the three recognized tags is accepted but treated as
// "unknown" for payout purposes (spec: parametric payout policy).
type Severity string

const (
	SeverityTinggi Severity = "Tinggi"
	SeveritySedang Severity = "Sedang"
	SeverityRendah Severity = "Rendah"
)

// ValidatedEvent is the immutable disaster record consumed by the Factory.
// Once constructed it is never mutated by any component.
type ValidatedEvent struct {
	EventType   string
	Severity    Severity
	DetailsJSON string
}

// DeterminePayout is the parametric payout policy. It is a pure function of
// the severity string alone — no claims, adjudication, or timing logic —
// and its table is part of the external contract: changing it is a
// protocol change, not a tuning knob.
func DeterminePayout(severity Severity) uint64 {
	switch severity {
	case SeverityTinggi:
		return 100_000_000
	case SeveritySedang:
		return 50_000_000
	case SeverityRendah:
		return 10_000_000
	default:
		return 0
	}
}
