// Package broker publishes payment status events to RabbitMQ.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"pixcharge/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends StatusChange events to a topic exchange with routing key
// pix.charge.<status>.
type Publisher struct {
	url      string
	exchange string
	log      zerolog.Logger
	dial     func(url, exchange string) (*amqp.Connection, channel, error)

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

func NewPublisher(url, exchange string, log zerolog.Logger) *Publisher {
	return &Publisher{
		url:      url,
		exchange: exchange,
		log:      log.With().Str("component", "broker").Logger(),
		dial:     dial,
	}
}

func dial(url, exchange string) (*amqp.Connection, channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// Connect dials eagerly so a bad URL surfaces at startup.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked()
}

func (p *Publisher) connectLocked() error {
	if p.ch != nil {
		return nil
	}
	conn, ch, err := p.dial(p.url, p.exchange)
	if err != nil {
		return fmt.Errorf("amqp connect: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func RoutingKey(status domain.PaymentStatus) string {
	return "pix.charge." + strings.ToLower(string(status))
}

// PublishStatus publishes ev, redialing once if the channel was lost.
func (p *Publisher) PublishStatus(ctx context.Context, ev domain.StatusChange) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("%s:%s:%d", ev.Txid, ev.To, ev.At.UnixNano()),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	key := RoutingKey(ev.To)

	p.mu.Lock()
	defer p.mu.Unlock()
	for attempt := 0; attempt < 2; attempt++ {
		if err = p.connectLocked(); err != nil {
			continue
		}
		if err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err == nil {
			return nil
		}
		p.log.Warn().Err(err).Str("routing_key", key).Msg("publish failed, reconnecting")
		p.resetLocked()
	}
	return err
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}
