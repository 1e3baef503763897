package rail

import (
	"fmt"
	"time"
)

// wireTimeLayout is the timestamp format used by the schedule endpoint.
const wireTimeLayout = "02/01/2006 15:04:05"

// Train is one scheduled departure between two stations. Values are immutable
// once parsed from a schedule response.
type Train struct {
	Departure    time.Time `json:"departure"`
	Arrival      time.Time `json:"arrival"`
	OriginID     int       `json:"origin_id"`
	DestID       int       `json:"dest_id"`
	Number       int       `json:"number"`
	Platform     int       `json:"platform"`
	DestPlatform int       `json:"dest_platform"`
	IsFull       bool      `json:"is_full"`
}

// ParseWireTime parses the DD/MM/YYYY HH:MM:SS timestamps of the schedule API.
func ParseWireTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(wireTimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse wire time %q: %w", s, err)
	}
	return t, nil
}

// FormatWireTime renders t in the DD/MM/YYYY HH:MM:SS wire format.
func FormatWireTime(t time.Time) string {
	return t.Format(wireTimeLayout)
}

// Same reports whether two records describe the same physical train.
// The schedule source occasionally renumbers trains, so equality is decided
// by departure and arrival datetimes only.
func (t Train) Same(other Train) bool {
	return t.Departure.Equal(other.Departure) && t.Arrival.Equal(other.Arrival)
}

// Label returns the candidate keyboard label, "HH:MM - HH:MM".
func (t Train) Label() string {
	return fmt.Sprintf("%s - %s", t.Departure.Format("15:04"), t.Arrival.Format("15:04"))
}

// Description returns the multi-line train card shown before the voucher.
func (t Train) Description() string {
	origin, _ := StationIDToName(t.OriginID)
	dest, _ := StationIDToName(t.DestID)
	return fmt.Sprintf("Train #%d:\n%s -> %s\n%s, %s",
		t.Number, origin, dest, t.Departure.Format("Mon Jan _2"), t.Label())
}

// LineDescription returns the one-line label used for saved trains.
func (t Train) LineDescription() string {
	origin, _ := StationIDToName(t.OriginID)
	dest, _ := StationIDToName(t.DestID)
	return fmt.Sprintf("%s -> %s, %s", origin, dest, t.Label())
}
