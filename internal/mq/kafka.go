package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

type kafkaQueue struct {
	w *kafka.Writer
}

// NewKafka publishes to topic on brokers. Without brokers it is a Noop.
func NewKafka(brokers []string, topic string) Queue {
	if len(brokers) == 0 {
		return NewNoop()
	}
	if topic == "" {
		topic = "gamestore.downloads"
	}
	// Writers are safe for concurrent use
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &kafkaQueue{w: w}
}

func (q *kafkaQueue) PublishEvent(ctx context.Context, evt map[string]any) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	// key by game so one game's events stay ordered within a partition
	return q.w.WriteMessages(ctx, kafka.Message{Key: []byte(fmt.Sprint(evt["game_id"])), Value: b})
}

func (q *kafkaQueue) Close() error {
	return q.w.Close()
}
