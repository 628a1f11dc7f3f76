// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the message body written to the order events topic.
type OrderEvent struct {
	EventType      string    `json:"event_type"`
	OrderID        string    `json:"order_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Total          string    `json:"total"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewOrderCreated builds the event emitted after a checkout is accepted.
func NewOrderCreated(order *domain.Order, at time.Time) OrderEvent {
	return OrderEvent{
		EventType: EventTypeOrderCreated,
		OrderID:   order.OrderID,
		Status:    string(order.Status),
		Total:     order.Total.StringFixed(2),
		Timestamp: at.UTC(),
	}
}

// NewOrderStatusChanged builds the event emitted after an admin status change.
func NewOrderStatusChanged(order *domain.Order, previous domain.OrderStatus, at time.Time) OrderEvent {
	return OrderEvent{
		EventType:      EventTypeOrderStatusChanged,
		OrderID:        order.OrderID,
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		Total:          order.Total.StringFixed(2),
		Timestamp:      at.UTC(),
	}
}

// Publisher delivers order events.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher connects a synchronous producer to brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewPublisherWithProducer(producer, topic, logger), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.Named("events"),
	}
}

// Publish sends event keyed by order id so one order's events stay ordered.
func (p *kafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.OrderID),
		Value:     sarama.ByteEncoder(data),
		Timestamp: event.Timestamp,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("Failed to send order event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("order_id", event.OrderID),
		)
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Debug("Order event sent",
		zap.String("event_type", event.EventType),
		zap.String("order_id", event.OrderID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *kafkaPublisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

// Noop discards events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, OrderEvent) error { return nil }

func (Noop) Close() error { return nil }
