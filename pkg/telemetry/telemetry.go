// Package telemetry defines the message a station publishes for one sample.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonas9200/clima-AGS/pkg/readings"
)

// Reading is one station sample as published on MQTT or Kafka.
type Reading struct {
	DeviceID    string    `json:"equipamento"`
	Timestamp   time.Time `json:"registro"`
	Rain        *float64  `json:"chuva,omitempty"`
	Temperature *float64  `json:"temperatura,omitempty"`
	Humidity    *float64  `json:"umidade,omitempty"`
}

// UnmarshalJSON accepts registro in any of the store timestamp formats, not
// only RFC 3339.
func (r *Reading) UnmarshalJSON(data []byte) error {
	type alias Reading
	var raw struct {
		alias
		Timestamp string `json:"registro"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Reading(raw.alias)
	r.Timestamp = time.Time{}
	if strings.TrimSpace(raw.Timestamp) == "" {
		return nil
	}
	ts, err := readings.ParseTimestamp(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("registro: %w", err)
	}
	r.Timestamp = ts
	return nil
}

// Validate checks the fields required before a reading is stored.
func (r Reading) Validate() error {
	if strings.TrimSpace(r.DeviceID) == "" {
		return errors.New("equipamento is required")
	}
	if r.Timestamp.IsZero() {
		return errors.New("registro is required")
	}
	if r.Humidity != nil && (*r.Humidity < 0 || *r.Humidity > 100) {
		return fmt.Errorf("umidade out of range: %f (must be 0-100)", *r.Humidity)
	}
	if r.Rain != nil && *r.Rain < 0 {
		return fmt.Errorf("chuva must not be negative: %f", *r.Rain)
	}
	if r.Rain == nil && r.Temperature == nil && r.Humidity == nil {
		return errors.New("at least one reading (chuva, temperatura or umidade) is required")
	}
	return nil
}

// Decode parses and validates a JSON payload.
func Decode(payload []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return Reading{}, fmt.Errorf("parse telemetry: %w", err)
	}
	if err := r.Validate(); err != nil {
		return r, fmt.Errorf("invalid telemetry: %w", err)
	}
	return r, nil
}

// Record converts the reading into its canonical record.
func (r Reading) Record() readings.Record {
	return readings.Record{
		Timestamp:   r.Timestamp,
		DeviceID:    strings.TrimSpace(r.DeviceID),
		Rain:        r.Rain,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
	}
}
