package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"shopmate/log"
)

// AMQPSink publishes event batches to a RabbitMQ queue as JSON
type AMQPSink struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
}

// NewAMQPSink connects to RabbitMQ and declares the target queue. Returns
// nil (no sink, events dropped) when url is empty so deployments without a
// broker need no extra configuration.
func NewAMQPSink(url, queue string) (*AMQPSink, error) {
	if url == "" {
		log.Log.Infof("[Analytics] AMQP URL is not set, event publishing disabled")
		return nil, nil
	}
	if queue == "" {
		queue = "shopmate_events"
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open RabbitMQ channel: %w", err)
	}

	// Declare queue (idempotent)
	_, err = channel.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("could not declare RabbitMQ queue: %w", err)
	}

	log.Log.Infof("[Analytics] RabbitMQ connection established | Queue: %s", queue)
	return &AMQPSink{conn: conn, channel: channel, queue: queue}, nil
}

// Publish sends each event of the batch as one JSON message
func (s *AMQPSink) Publish(ctx context.Context, events []Event) error {
	for _, event := range events {
		body, err := json.Marshal(event)
		if err != nil {
			log.Log.Warnf("[Analytics] Failed to encode event | Type: %s | Error: %v", event.Type, err)
			continue
		}
		err = s.channel.PublishWithContext(ctx,
			"",      // exchange (default)
			s.queue, // routing key = queue
			false,   // mandatory
			false,   // immediate
			amqp091.Publishing{
				ContentType: "application/json",
				Body:        body,
			},
		)
		if err != nil {
			return fmt.Errorf("could not publish to RabbitMQ: %w", err)
		}
	}
	return nil
}

// Close closes the channel and connection
func (s *AMQPSink) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

var _ Sink = (*AMQPSink)(nil)
