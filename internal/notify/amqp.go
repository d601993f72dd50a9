package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"instantride/internal/logger"
	"instantride/internal/service"
)

// Routing keys on the topic exchange.
const (
	driverKeyPrefix   = "driver."
	customerKeyPrefix = "customer."
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// CustomerMessage is the body published for a customer notification.
type CustomerMessage struct {
	RideID  string    `json:"ride_id"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// AMQPPublisher publishes notifications to a topic exchange so that driver
// apps and customer channels can consume them. Driver summaries go to
// driver.<id>, customer messages to customer.<ride id>.
type AMQPPublisher struct {
	mu       sync.Mutex
	url      string
	exchange string
	conn     *amqp.Connection
	ch       channel
	log      logger.ILogger
	now      func() time.Time
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string, log logger.ILogger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange, log: log, now: time.Now}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return errors.Join(conn.Close(), err)
	}
	err = ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Join(conn.Close(), err)
	}
	p.conn = conn
	p.ch = ch
	return nil
}

// NotifyDriver publishes summary to driver.<driverID>.
func (p *AMQPPublisher) NotifyDriver(ctx context.Context, driverID string, summary service.RideSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return p.publish(ctx, driverKeyPrefix+driverID, body)
}

// NotifyCustomer publishes message to customer.<rideID>.
func (p *AMQPPublisher) NotifyCustomer(ctx context.Context, rideID string, message string) error {
	body, err := json.Marshal(CustomerMessage{RideID: rideID, Message: message, SentAt: p.now()})
	if err != nil {
		return err
	}
	return p.publish(ctx, customerKeyPrefix+rideID, body)
}

func (p *AMQPPublisher) publish(ctx context.Context, key string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Redial once if the broker dropped us since the last publish.
	if p.conn != nil && p.conn.IsClosed() {
		p.log.Warning("amqp connection lost, reconnecting", logger.String("exchange", p.exchange))
		if err := p.connect(); err != nil {
			return err
		}
	}

	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now(),
		Body:         body,
	})
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
