package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

const (
	applicationsQueue = "applications"
	updatesExchange   = "application_updates"
)

// publisher sends work and status events to the broker.
type publisher interface {
	Enqueue(ctx context.Context, msg ApplicationMessage) error
	PublishUpdate(ctx context.Context, routingKey string, update any) error
}

type rabbitPublisher struct {
	conn *amqp.Connection
}

func newRabbitPublisher(conn *amqp.Connection) (*rabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	defer ch.Close()
	if err := declareTopology(ch); err != nil {
		return nil, err
	}
	return &rabbitPublisher{conn: conn}, nil
}

// declareTopology declares the work queue and the topic exchange that
// carries status updates. Both survive broker restarts.
func declareTopology(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		applicationsQueue, // queue name
		true,              // durable
		false,             // auto-delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	err = ch.ExchangeDeclare(
		updatesExchange, // name
		"topic",         // kind
		true,            // durable
		false,           // auto-delete
		false,           // internal
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

func (p *rabbitPublisher) Enqueue(ctx context.Context, msg ApplicationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.publish(ctx, "", applicationsQueue, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (p *rabbitPublisher) PublishUpdate(ctx context.Context, routingKey string, update any) error {
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return p.publish(ctx, updatesExchange, routingKey, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// publish opens a short-lived channel per message; amqp channels are not
// safe for concurrent publishers.
func (p *rabbitPublisher) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	return ch.Publish(exchange, key, false, false, msg)
}

func applicationRoutingKey(id fmt.Stringer) string {
	return "application." + id.String()
}

func captureRoutingKey(sessionID string) string {
	return "capture." + sessionID
}
