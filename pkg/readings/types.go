// Package readings holds the retrieval-and-aggregation pipeline for sensor
// series: filter resolution, row normalization, the period rain total and
// hourly bucketing. Everything here is pure and safe to share between the
// server and API clients.
package readings

import (
	"fmt"
	"strings"
	"time"
)

// Layout identifies how a store lays out its raw rows.
type Layout int

const (
	// LayoutWide is one row per timestamp with a column per metric.
	LayoutWide Layout = iota + 1
	// LayoutLong is one row per timestamp per metric.
	LayoutLong
)

func (l Layout) String() string {
	switch l {
	case LayoutWide:
		return "wide"
	case LayoutLong:
		return "long"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// ParseLayout accepts "wide"/"A" and "long"/"B".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wide", "a":
		return LayoutWide, nil
	case "long", "b":
		return LayoutLong, nil
	default:
		return 0, fmt.Errorf("%w: %q (allowed: wide, long)", ErrUnknownLayout, s)
	}
}

// MetricCode is the metric discriminator used by long rows.
type MetricCode int

const (
	MetricRain        MetricCode = 1
	MetricTemperature MetricCode = 2
	MetricHumidity    MetricCode = 3
)

// Known reports whether the code maps to a record slot.
func (m MetricCode) Known() bool {
	return m == MetricRain || m == MetricTemperature || m == MetricHumidity
}

func (m MetricCode) String() string {
	switch m {
	case MetricRain:
		return "chuva"
	case MetricTemperature:
		return "temperatura"
	case MetricHumidity:
		return "umidade"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// WideRow is a layout A row. Timestamp is the raw text returned by the store.
type WideRow struct {
	Timestamp   string
	DeviceID    string
	Rain        *float64
	Temperature *float64
	Humidity    *float64
}

// LongRow is a layout B row carrying exactly one metric.
type LongRow struct {
	Timestamp string
	DeviceID  string
	Metric    MetricCode
	Value     float64
}

// RawRows is the tagged union handed from the store to Normalize. Only the
// slice matching Layout may be populated.
type RawRows struct {
	Layout Layout
	Wide   []WideRow
	Long   []LongRow
}

// Len returns the number of raw rows regardless of layout.
func (r RawRows) Len() int {
	return len(r.Wide) + len(r.Long)
}

// Validate rejects unions whose payload does not match the tag.
func (r RawRows) Validate() error {
	switch r.Layout {
	case LayoutWide:
		if len(r.Long) > 0 {
			return fmt.Errorf("%w: wide batch carries %d long rows", ErrInconsistentLayout, len(r.Long))
		}
	case LayoutLong:
		if len(r.Wide) > 0 {
			return fmt.Errorf("%w: long batch carries %d wide rows", ErrInconsistentLayout, len(r.Wide))
		}
	default:
		if r.Len() > 0 {
			return fmt.Errorf("%w: %s", ErrUnknownLayout, r.Layout)
		}
	}
	return nil
}

// Record is the canonical wide record: one per (timestamp, device).
type Record struct {
	Timestamp   time.Time `json:"registro"`
	DeviceID    string    `json:"equipamento"`
	Rain        *float64  `json:"chuva"`
	Temperature *float64  `json:"temperatura"`
	Humidity    *float64  `json:"umidade"`
}

// Bucket summarizes one hour of records. The *Samples fields count the
// non-missing inputs per metric; a zero count means the matching value is
// a placeholder 0, not a measured mean.
type Bucket struct {
	HourStart          time.Time `json:"hora"`
	SampleCount        int       `json:"amostras"`
	Temperature        float64   `json:"temperatura"`
	Humidity           float64   `json:"umidade"`
	Rain               float64   `json:"chuva"`
	TemperatureSamples int       `json:"amostras_temperatura"`
	HumiditySamples    int       `json:"amostras_umidade"`
	RainSamples        int       `json:"amostras_chuva"`
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
