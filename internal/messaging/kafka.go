package messaging

import (
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/softiel/backend/internal/config"
)

// NewKafkaWriter returns a writer for topic. Messages with the same key land
// on the same partition.
func NewKafkaWriter(cfg config.KafkaConfig, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}
