package readings

import "time"

// SkipReason labels a raw row dropped during normalization.
type SkipReason string

const (
	SkipBadTimestamp  SkipReason = "bad_timestamp"
	SkipUnknownMetric SkipReason = "unknown_metric"
)

// NormalizeReport accounts for every raw row: Input = rows seen, Output =
// records produced, Skipped = rows dropped by reason. Input minus skipped
// rows minus Output is the number of rows merged into an existing record.
type NormalizeReport struct {
	Input   int
	Output  int
	Skipped map[SkipReason]int
}

// SkippedTotal sums skipped rows over all reasons.
func (r NormalizeReport) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

type recordKey struct {
	instant  int64
	deviceID string
}

// merger collects records in first-seen order, one per key.
type merger struct {
	index  map[recordKey]int
	out    []Record
	report NormalizeReport
}

func newMerger(n int) *merger {
	return &merger{
		index: make(map[recordKey]int, n),
		out:   make([]Record, 0, n),
		report: NormalizeReport{
			Input:   n,
			Skipped: map[SkipReason]int{},
		},
	}
}

func (m *merger) skip(reason SkipReason) {
	m.report.Skipped[reason]++
}

// slot returns the index of the record for (ts, device), creating an
// all-null record on first sight.
func (m *merger) slot(ts time.Time, deviceID string) int {
	k := recordKey{instant: ts.UnixNano(), deviceID: deviceID}
	if i, ok := m.index[k]; ok {
		return i
	}
	m.out = append(m.out, Record{Timestamp: ts, DeviceID: deviceID})
	i := len(m.out) - 1
	m.index[k] = i
	return i
}

func (m *merger) result() ([]Record, NormalizeReport) {
	m.report.Output = len(m.out)
	return m.out, m.report
}

// Normalize converts raw rows into canonical records, dispatching on the
// layout tag. Rows with an unparseable timestamp or an unknown metric code
// are skipped and counted; the rest of the batch is still processed. Rows
// sharing (timestamp, device) merge by metric slot, and a present value is
// never replaced by a missing one. Output keeps first-seen order.
func Normalize(rows RawRows) ([]Record, NormalizeReport, error) {
	if err := rows.Validate(); err != nil {
		return nil, NormalizeReport{}, err
	}

	m := newMerger(rows.Len())
	switch rows.Layout {
	case LayoutWide:
		for _, row := range rows.Wide {
			ts, err := ParseTimestamp(row.Timestamp)
			if err != nil {
				m.skip(SkipBadTimestamp)
				continue
			}
			rec := &m.out[m.slot(ts, row.DeviceID)]
			mergeSlot(&rec.Rain, row.Rain)
			mergeSlot(&rec.Temperature, row.Temperature)
			mergeSlot(&rec.Humidity, row.Humidity)
		}
	case LayoutLong:
		for _, row := range rows.Long {
			if !row.Metric.Known() {
				m.skip(SkipUnknownMetric)
				continue
			}
			ts, err := ParseTimestamp(row.Timestamp)
			if err != nil {
				m.skip(SkipBadTimestamp)
				continue
			}
			rec := &m.out[m.slot(ts, row.DeviceID)]
			v := row.Value
			switch row.Metric {
			case MetricRain:
				rec.Rain = &v
			case MetricTemperature:
				rec.Temperature = &v
			case MetricHumidity:
				rec.Humidity = &v
			}
		}
	}

	out, report := m.result()
	return out, report, nil
}

func mergeSlot(dst **float64, v *float64) {
	if v == nil {
		return
	}
	c := *v
	*dst = &c
}

// FromRecords renders canonical records back as layout A rows, so that
// Normalize(FromRecords(recs)) reproduces recs.
func FromRecords(records []Record) RawRows {
	rows := make([]WideRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, WideRow{
			Timestamp:   r.Timestamp.Format(time.RFC3339Nano),
			DeviceID:    r.DeviceID,
			Rain:        r.Rain,
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
		})
	}
	return RawRows{Layout: LayoutWide, Wide: rows}
}
