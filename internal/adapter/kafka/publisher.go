package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/pm25-field-data/internal/config"
	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

// Publisher produces saved calculations to the results topic.
// It implements pipeline.ResultsPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured results topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaResultsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes every result in a single WriteMessages call. Results for
// the same site and start date share a key and land on one partition.
func (p *Publisher) Publish(ctx context.Context, results []domain.CalculatedRecord) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d results to %q: %w", len(msgs), p.writer.Topic, err)
	}
	p.logger.Debug("results published", "topic", p.writer.Topic, "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// messageKey groups results by site and sampling start date.
func messageKey(r domain.CalculatedRecord) string {
	return r.SiteID + "|" + r.Start.Date
}

// serializeToMessage marshals a calculated record into a Kafka message.
func serializeToMessage(r domain.CalculatedRecord) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize calculation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(r)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "site_id", Value: []byte(r.SiteID)},
			{Key: "saved_at", Value: []byte(r.SavedAt)},
		},
	}, nil
}
