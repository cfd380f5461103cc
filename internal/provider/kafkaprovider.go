package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/gofanout/track/internal/metrics"
	"github.com/gofanout/track/pkg/track"
)

// KafkaConfig holds configuration for the Kafka producer.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	Acks        string
	Compression string

	// SASL config
	SASLMechanism string
	SASLUser      string
	SASLPassword  string

	// TLS config
	TLSCAPath     string
	TLSSkipVerify bool
}

// KafkaProvider produces one message per tracking call, keyed by record
// id for idempotent downstream consumption.
type KafkaProvider struct {
	config   KafkaConfig
	producer *kafka.Producer
}

// NewKafkaProviderFromEnv creates a KafkaProvider from environment variables.
func NewKafkaProviderFromEnv() *KafkaProvider {
	brokersStr := os.Getenv("KAFKA_BROKERS")
	if brokersStr == "" {
		brokersStr = "localhost:9092"
	}
	brokers := strings.Split(brokersStr, ",")
	for i, broker := range brokers {
		brokers[i] = strings.TrimSpace(broker)
	}

	config := KafkaConfig{
		Brokers:       brokers,
		Topic:         getEnvOr("KAFKA_TOPIC", "track.records"),
		Acks:          getEnvOr("KAFKA_ACKS", "all"),
		Compression:   getEnvOr("KAFKA_COMPRESSION", ""),
		SASLMechanism: os.Getenv("KAFKA_SASL_MECHANISM"),
		SASLUser:      os.Getenv("KAFKA_SASL_USER"),
		SASLPassword:  os.Getenv("KAFKA_SASL_PASSWORD"),
		TLSCAPath:     os.Getenv("KAFKA_TLS_CA"),
		TLSSkipVerify: getBoolEnv("KAFKA_TLS_SKIP_VERIFY", false),
	}

	return &KafkaProvider{config: config}
}

// NewKafkaProvider creates a KafkaProvider with explicit configuration.
func NewKafkaProvider(brokers []string, topic string) *KafkaProvider {
	return &KafkaProvider{
		config: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
			Acks:    "all",
		},
	}
}

func (s *KafkaProvider) Name() string { return "kafka" }

func (s *KafkaProvider) Start(ctx context.Context) error {
	configMap := kafka.ConfigMap{
		"bootstrap.servers": strings.Join(s.config.Brokers, ","),
		"acks":              s.config.Acks,
		"retries":           10,
		"retry.backoff.ms":  100,
		"batch.size":        16384,
		"linger.ms":         10,
	}

	if s.config.Compression != "" {
		configMap["compression.type"] = s.config.Compression
	}

	if s.config.SASLMechanism != "" {
		configMap["security.protocol"] = "SASL_SSL"
		configMap["sasl.mechanism"] = s.config.SASLMechanism
		if s.config.SASLUser != "" {
			configMap["sasl.username"] = s.config.SASLUser
		}
		if s.config.SASLPassword != "" {
			configMap["sasl.password"] = s.config.SASLPassword
		}
	}

	if s.config.TLSCAPath != "" {
		if s.config.SASLMechanism == "" {
			configMap["security.protocol"] = "SSL"
		}
		configMap["ssl.ca.location"] = s.config.TLSCAPath
	}

	if s.config.TLSSkipVerify {
		configMap["ssl.endpoint.identification.algorithm"] = "none"
	}

	producer, err := kafka.NewProducer(&configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	s.producer = producer

	go s.handleDeliveryReports(ctx)

	return nil
}

func (s *KafkaProvider) LogView(v track.View)         { s.produce(viewRecord(v)) }
func (s *KafkaProvider) LogEvent(e track.Event)       { s.produce(eventRecord(e)) }
func (s *KafkaProvider) LogPurchase(p track.Purchase) { s.produce(purchaseRecord(p)) }

func (s *KafkaProvider) SetUserProperty(value *string, key string) {
	s.produce(propertyRecord(value, key))
}

func (s *KafkaProvider) produce(r Record) {
	if s.producer == nil {
		metrics.IncProviderError(s.Name(), "not_started")
		return
	}

	value, err := json.Marshal(r)
	if err != nil {
		metrics.IncProviderError(s.Name(), "serialize")
		log.Printf("kafka provider: serialize failed: %v", err)
		return
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &s.config.Topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(r.RecordID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(r.Kind)},
			{Key: "schema", Value: []byte("v1")},
		},
	}

	if err := s.producer.Produce(msg, nil); err != nil {
		metrics.IncProviderError(s.Name(), "produce")
		log.Printf("kafka provider: produce failed: %v", err)
		return
	}

	metrics.IncDispatch(s.Name(), r.Kind)
}

func (s *KafkaProvider) Close() error {
	if s.producer == nil {
		return nil
	}

	// Flush any remaining messages (wait up to 10 seconds)
	remaining := s.producer.Flush(10 * 1000)
	if remaining > 0 {
		return fmt.Errorf("failed to flush %d remaining messages", remaining)
	}

	s.producer.Close()
	return nil
}

// handleDeliveryReports drains the producer's event channel so delivery
// failures are at least counted and logged.
func (s *KafkaProvider) handleDeliveryReports(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.producer.Events():
			if !ok {
				return
			}
			switch e := ev.(type) {
			case *kafka.Message:
				if e.TopicPartition.Error != nil {
					metrics.IncProviderError(s.Name(), "delivery")
					log.Printf("kafka provider: delivery failed: %v", e.TopicPartition.Error)
				}
			case kafka.Error:
				metrics.IncProviderError(s.Name(), "client")
				log.Printf("kafka provider: %v", e)
			}
		}
	}
}

// Helper functions
func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return defaultValue
}
