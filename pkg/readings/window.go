package readings

import (
	"fmt"
	"time"
)

const DefaultWindowKey = "24h"

// Window is one of the quick "last N" ranges offered to operators.
type Window struct {
	Key   string
	Label string
	back  func(now time.Time) time.Time
}

var windows = []Window{
	{Key: "24h", Label: "Últimas 24h", back: func(now time.Time) time.Time { return now.Add(-24 * time.Hour) }},
	{Key: "7d", Label: "Últimos 7 dias", back: func(now time.Time) time.Time { return now.AddDate(0, 0, -7) }},
	{Key: "30d", Label: "Último mês", back: func(now time.Time) time.Time { return now.AddDate(0, 0, -30) }},
}

// Windows lists the quick ranges in display order.
func Windows() []Window {
	out := make([]Window, len(windows))
	copy(out, windows)
	return out
}

// LastWindow returns [start, now] for key. Day windows step calendar days in
// now's location.
func LastWindow(key string, now time.Time) (start, end time.Time, err error) {
	for _, w := range windows {
		if w.Key == key {
			return w.back(now), now, nil
		}
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown window %q (allowed: 24h, 7d, 30d)", key)
}
