package taskrt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/liquidinvestigations/hoover3-sub000/queue"
)

// AMQPQueue implements taskrt.Queue over RabbitMQ, as the optional alternate
// task-queue transport named in SPEC_FULL.md's domain stack. Adapted from
// queue/rabbit.go's RabbitMQService (durable-queue declare, JSON-serialized
// publish, dependency-injectable dialer), generalized from publishing a
// single eve.FlowProcessMessage type to publishing taskrt.Task envelopes to
// per-queue-name durable AMQP queues.
type AMQPQueue struct {
	conn    queue.AMQPConnection
	channel queue.AMQPChannel
}

// NewAMQPQueue dials url (via the real AMQP dialer) and opens a channel.
func NewAMQPQueue(url string) (*AMQPQueue, error) {
	return NewAMQPQueueWithDialer(url, &queue.RealAMQPDialer{})
}

// NewAMQPQueueWithDialer allows injecting a custom dialer for testing,
// mirroring queue/rabbit.go's NewRabbitMQServiceWithDialer.
func NewAMQPQueueWithDialer(url string, dialer queue.AMQPDialer) (*AMQPQueue, error) {
	conn, err := dialer.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("taskrt: amqp queue: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("taskrt: amqp queue: open channel: %w", err)
	}
	return &AMQPQueue{conn: conn, channel: ch}, nil
}

func (q *AMQPQueue) ensureQueue(name string) error {
	_, err := q.channel.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("taskrt: amqp queue: declare %s: %w", name, err)
	}
	return nil
}

func (q *AMQPQueue) Enqueue(queueName string, task Task) error {
	if err := q.ensureQueue(queueName); err != nil {
		return err
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("taskrt: amqp queue: marshal task: %w", err)
	}
	return q.channel.Publish("", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
}

// Dequeue consumes a single delivery from queueName, acking it on receipt
// (at-most-once-effective delivery; the workflow engine's own retry policy,
// not AMQP redelivery, handles failed attempts).
func (q *AMQPQueue) Dequeue(queueName string, timeout time.Duration) (*Task, error) {
	if err := q.ensureQueue(queueName); err != nil {
		return nil, err
	}
	deliveries, err := q.channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("taskrt: amqp queue: consume %s: %w", queueName, err)
	}

	select {
	case d, ok := <-deliveries:
		if !ok {
			return nil, nil
		}
		var task Task
		if err := json.Unmarshal(d.Body, &task); err != nil {
			d.Nack(false, false)
			return nil, fmt.Errorf("taskrt: amqp queue: decode task: %w", err)
		}
		d.Ack(false)
		return &task, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

func (q *AMQPQueue) Close() error {
	q.channel.Close()
	return q.conn.Close()
}
