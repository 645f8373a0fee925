// Package queue carries analysis jobs between the API and the worker over
// RabbitMQ. Every queue gets a retry companion that dead-letters expired
// messages back onto it, plus a dead-letter queue for messages past the
// retry cap.
package queue

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// AnalyzeQueue carries document analysis jobs.
const AnalyzeQueue = "analyze_queue"

// MaxRetries caps re-deliveries before a message moves to the DLQ.
const MaxRetries = 10

// retryTTLMs is how long a failed message rests in the retry queue before
// it dead-letters back onto the work queue.
const retryTTLMs = 10000

// Channel is the slice of *amqp091.Channel the queue helpers use.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

func Init(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	return conn, nil
}

// SetupQueues declares each named queue together with its retry and
// dead-letter companions. Declarations are idempotent, so both binaries
// run this at startup.
func SetupQueues(ch Channel, queueNames []string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		if _, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryTTLMs),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", retryName, err)
		}
	}

	return nil
}

// PublishFIFO publishes one persistent message onto the named queue.
func PublishFIFO(ch Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	err = ch.Publish(
		"",
		q.Name,
		false,
		false,
		publishing,
	)
	if err != nil {
		return err
	}

	return nil
}
