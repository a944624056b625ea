package service

import (
	"context"
	"fmt"

	"github.com/jonas9200/clima-AGS/pkg/telemetry"
)

// Ingest stores one telemetry reading received from source ("mqtt",
// "kafka"). Invalid readings are rejected before reaching the store.
func (s *Service) Ingest(ctx context.Context, source string, r telemetry.Reading) error {
	if err := r.Validate(); err != nil {
		s.metrics.Ingested(source, "invalid")
		return fmt.Errorf("invalid telemetry: %w", err)
	}

	s.logger.Debug("processing telemetry message",
		"source", source,
		"equipamento", r.DeviceID,
		"registro", r.Timestamp,
	)

	_, err := storeCall(ctx, s.breaker, func() (struct{}, error) {
		return struct{}{}, s.repository.InsertReading(ctx, r)
	})
	if err != nil {
		s.metrics.Ingested(source, "failed")
		s.logger.Error("failed to insert reading",
			"source", source,
			"equipamento", r.DeviceID,
			"error", err,
		)
		return err
	}

	s.metrics.Ingested(source, "stored")
	s.logger.Debug("successfully stored telemetry", "source", source, "equipamento", r.DeviceID)
	return nil
}

// Handler adapts Ingest to the message-handler shape used by the MQTT
// subscriber and the Kafka consumer.
func (s *Service) Handler(source string) func(ctx context.Context, r telemetry.Reading) error {
	return func(ctx context.Context, r telemetry.Reading) error {
		return s.Ingest(ctx, source, r)
	}
}
