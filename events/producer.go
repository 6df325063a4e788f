package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Shopify/sarama"
)

// Producer publishes panel audit events (order transitions, chat sends) to
// Kafka. Publishing failures are logged, never surfaced to the user path.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &Producer{producer: producer, topic: topic}, nil
}

// LogEvent stamps the event and sends it to the audit topic.
func (p *Producer) LogEvent(event map[string]interface{}) {
	event["timestamp"] = time.Now().Unix()
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: failed to marshal event: %v", err)
		return
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.StringEncoder(data),
	})
	if err != nil {
		log.Printf("events: failed to publish event: %v", err)
	}
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
