package alerting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// NewKafkaProducer dials brokers with a producer that waits for all in-sync replicas.
func NewKafkaProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// KafkaNotifier publishes notifications as JSON keyed by kind.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewKafkaNotifier wraps a producer.
func NewKafkaNotifier(producer sarama.SyncProducer, topic string, logger zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		topic:    topic,
		logger:   logger.With().Str("component", "notify_kafka").Logger(),
	}
}

// Notify publishes one message.
func (k *KafkaNotifier) Notify(ctx context.Context, note Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal kafka payload: %w", err)
	}

	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(note.Kind),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", k.topic, err)
	}

	k.logger.Info().Str("kind", note.Kind).Int32("partition", partition).Int64("offset", offset).Msg("notification sent (Kafka)")
	return nil
}

// Close closes the producer.
func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}

var _ Notifier = (*KafkaNotifier)(nil)
