package readings

import (
	"math"
	"slices"
	"time"
)

// HourStart drops minutes and below, keeping t's location and wall clock.
func HourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// hourAccumulator keeps the raw values of one hour; they are summed in
// sorted order so the result does not depend on input order.
type hourAccumulator struct {
	hour  time.Time
	count int

	temps, hums, rains []float64
}

func (a *hourAccumulator) add(r Record) {
	a.count++
	if r.Temperature != nil {
		a.temps = append(a.temps, *r.Temperature)
	}
	if r.Humidity != nil {
		a.hums = append(a.hums, *r.Humidity)
	}
	if r.Rain != nil {
		a.rains = append(a.rains, *r.Rain)
	}
}

func (a *hourAccumulator) bucket() Bucket {
	return Bucket{
		HourStart:          a.hour,
		SampleCount:        a.count,
		Temperature:        mean2(a.temps),
		Humidity:           mean2(a.hums),
		Rain:               round2(sortedSum(a.rains)),
		TemperatureSamples: len(a.temps),
		HumiditySamples:    len(a.hums),
		RainSamples:        len(a.rains),
	}
}

// Hourly groups records by the hour they fall in and returns one bucket per
// hour that has records, ascending. Temperature and humidity are means of
// the non-missing values, rain is a sum; all three are rounded to 2
// decimals. Input order does not matter.
func Hourly(records []Record) []Bucket {
	groups := make(map[int64]*hourAccumulator)
	for _, r := range records {
		h := HourStart(r.Timestamp)
		k := h.UnixNano()
		acc, ok := groups[k]
		if !ok {
			acc = &hourAccumulator{hour: h}
			groups[k] = acc
		}
		acc.add(r)
	}

	buckets := make([]Bucket, 0, len(groups))
	for _, acc := range groups {
		buckets = append(buckets, acc.bucket())
	}
	slices.SortFunc(buckets, func(a, b Bucket) int {
		return a.HourStart.Compare(b.HourStart)
	})
	return buckets
}

func mean2(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	return round2(sortedSum(vs) / float64(len(vs)))
}

func sortedSum(vs []float64) float64 {
	slices.Sort(vs)
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
