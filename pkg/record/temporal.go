package record

import (
	"fmt"
	"time"
)

// Temporal is either Pending (the owning item is still in progress) or a
// concrete instant. The zero value is Pending.
type Temporal struct {
	at    time.Time
	known bool
}

// Pending returns the in-progress Temporal.
func Pending() Temporal { return Temporal{} }

// At returns a Temporal fixed at t.
func At(t time.Time) Temporal { return Temporal{at: t, known: true} }

// IsPending reports whether the value is still in progress.
func (t Temporal) IsPending() bool { return !t.known }

// Time returns the instant, ok=false when pending.
func (t Temporal) Time() (time.Time, bool) { return t.at, t.known }

// String formats the instant as RFC 3339, or "In Progress".
func (t Temporal) String() string {
	if !t.known {
		return InProgressLabel
	}
	return t.at.Format(time.RFC3339)
}

// InProgressLabel is the display text of a pending Temporal.
const InProgressLabel = "In Progress"

// pendingMarkers are the wire values the API and server-rendered pages use
// for "not ended yet".
var pendingMarkers = map[string]bool{
	"":              true,
	"<nil>":         true,
	InProgressLabel: true,
}

// ParseTemporal decodes a raw wire value. nil and the pending markers yield
// Pending; strings must be RFC 3339.
func ParseTemporal(raw any) (Temporal, error) {
	switch v := raw.(type) {
	case nil:
		return Pending(), nil
	case Temporal:
		return v, nil
	case time.Time:
		return At(v), nil
	case *time.Time:
		if v == nil {
			return Pending(), nil
		}
		return At(*v), nil
	case string:
		if pendingMarkers[v] {
			return Pending(), nil
		}
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return Temporal{}, fmt.Errorf("parse time %q: %w", v, err)
		}
		return At(t), nil
	}
	return Temporal{}, fmt.Errorf("unsupported temporal value %T", raw)
}
