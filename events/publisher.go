// Package events publishes report lifecycle notifications to Kafka so
// downstream services (certificate rendering, notifications) can react
// without polling the report store. Publishing is optional: with no
// brokers configured the publisher is nil and callers skip it.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"veritext/types"
)

// ReportCreatedEvent is the payload emitted after a report persists.
type ReportCreatedEvent struct {
	ReportID   string    `json:"report_id"`
	ArticleID  string    `json:"article_id"`
	Status     string    `json:"status"`
	AIScore    int       `json:"ai_score"`
	WebScore   float64   `json:"web_score"`
	MaxToolSim float64   `json:"max_tool_similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// Publisher wraps a sarama sync producer for report events.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisherFromEnv builds a publisher from KAFKA_BROKERS (comma
// separated) and KAFKA_REPORT_TOPIC. Returns nil with no error when no
// brokers are configured.
func NewPublisherFromEnv() (*Publisher, error) {
	brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	if brokers == "" {
		return nil, nil
	}
	topic := os.Getenv("KAFKA_REPORT_TOPIC")
	if topic == "" {
		topic = "originality.report.created"
	}
	return NewPublisher(strings.Split(brokers, ","), topic)
}

// NewPublisher connects a sync producer to the given brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Publisher{producer: producer, topic: topic}, nil
}

// PublishReportCreated emits one event for a freshly persisted report.
// A nil publisher is a no-op so callers need no broker-configured check.
func (p *Publisher) PublishReportCreated(report types.OriginalityReport) error {
	if p == nil {
		return nil
	}

	event := ReportCreatedEvent{
		ReportID:   report.ID,
		ArticleID:  report.ArticleID,
		Status:     report.Status,
		AIScore:    report.Summary.AIScore,
		WebScore:   report.Summary.WebScore,
		MaxToolSim: report.Summary.ExternalTool.MaxSimilarity,
		CreatedAt:  report.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal report event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(report.ArticleID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("publish report event: %w", err)
	}

	log.Printf("Published report event for %s (partition %d, offset %d)", report.ID, partition, offset)
	return nil
}

// Close shuts down the producer. Safe on nil.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
