package readings

import (
	"fmt"
	"strings"
	"time"
)

// StoreTimeLayout is the timestamp text format used by the store and the
// data_inicial/data_final query parameters.
const StoreTimeLayout = "2006-01-02 15:04:05"

// StoreWriteLayout is StoreTimeLayout with trailing fractional seconds.
// Whole seconds render exactly as StoreTimeLayout, and text comparison
// against stored values still orders by instant.
const StoreWriteLayout = "2006-01-02 15:04:05.999999999"

// timestampLayouts are tried in order. time.Parse accepts a fractional
// second after the seconds field even when the layout omits it.
var timestampLayouts = []string{
	StoreTimeLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses store and query-string timestamps. Text without an
// offset is read as a wall clock in UTC; no conversion is applied.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Filter is the canonical predicate used verbatim by the store fetch.
// Both bounds are inclusive; a nil bound is open.
type Filter struct {
	DeviceID string
	Start    *time.Time
	End      *time.Time
}

// IsEmpty reports whether the filter selects nothing (no device).
func (f Filter) IsEmpty() bool {
	return f.DeviceID == ""
}

// Contains reports whether a record for device at t satisfies the filter.
func (f Filter) Contains(deviceID string, t time.Time) bool {
	if f.IsEmpty() || deviceID != f.DeviceID {
		return false
	}
	if f.Start != nil && t.Before(*f.Start) {
		return false
	}
	if f.End != nil && t.After(*f.End) {
		return false
	}
	return true
}

// ResolveFilter builds a Filter. A blank device yields the empty filter and
// no error; a start after end is ErrInvalidRange.
func ResolveFilter(deviceID string, start, end *time.Time) (Filter, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return Filter{}, nil
	}
	if start != nil && end != nil && start.After(*end) {
		return Filter{}, fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidRange, start.Format(StoreTimeLayout), end.Format(StoreTimeLayout))
	}
	f := Filter{DeviceID: deviceID}
	if start != nil {
		s := *start
		f.Start = &s
	}
	if end != nil {
		e := *end
		f.End = &e
	}
	return f, nil
}
