// Package feed carries row-change notifications between the API server
// and the snapshot worker over AMQP. Subscriptions have an explicit
// lifecycle: Subscribe, drain Events, Close.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishRecordChange publishes a row-change notification.
func (c *Client) PublishRecordChange(ctx context.Context, msg *RecordChangeMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published record change",
		"table", msg.Table,
		"id", msg.ID,
		"action", msg.Action,
		"day", msg.Day)

	return nil
}

// Subscription is a live consumer of record-change events. Events stay
// unacknowledged until the handler result is known, so an event handled
// with an error is redelivered.
type Subscription struct {
	cancel context.CancelFunc
	events chan *RecordChangeMessage
	acks   chan bool
}

// Events yields decoded change notifications. The channel closes when
// the subscription is closed or the broker connection drops.
func (s *Subscription) Events() <-chan *RecordChangeMessage {
	return s.events
}

// Done reports the outcome of the most recent event: true acknowledges
// it, false rejects and requeues it.
func (s *Subscription) Done(ok bool) {
	s.acks <- ok
}

func (s *Subscription) Close() {
	s.cancel()
}

// Subscribe starts consuming record changes. Each event must be followed
// by a Done call before the next one is delivered.
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return nil, fmt.Errorf("start consuming: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		cancel: cancel,
		events: make(chan *RecordChangeMessage),
		acks:   make(chan bool),
	}

	go func() {
		defer close(sub.events)
		for {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "Subscription closed", "reason", ctx.Err())
				return
			case delivery, ok := <-msgs:
				if !ok {
					slog.WarnContext(ctx, "Broker channel closed")
					return
				}

				msg, err := RecordChangeFromJSON(delivery.Body)
				if err != nil {
					slog.ErrorContext(ctx, "Failed to unmarshal record change", "error", err)
					delivery.Nack(false, false) // poison message, drop
					continue
				}

				select {
				case <-ctx.Done():
					delivery.Nack(false, true)
					return
				case sub.events <- msg:
				}

				select {
				case <-ctx.Done():
					delivery.Nack(false, true)
					return
				case ok := <-sub.acks:
					if ok {
						delivery.Ack(false)
					} else {
						delivery.Nack(false, true) // requeue for retry
					}
				}
			}
		}
	}()

	slog.InfoContext(ctx, "Subscribed to record changes", "queue", c.queueName)
	return sub, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
