package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	defaultDialTimeout = 3 * time.Second
	defaultRedialDelay = 5 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while the publisher
// waits out the delay after a failed dial.
var ErrBrokerUnavailable = errors.New("queue: broker unavailable")

// Publisher sends LeaseEvents to a durable queue on the default
// exchange.  The connection is opened lazily and reopened after any
// failure, so a broker outage only costs the events published during it.
// Dials are bounded by dialTimeout and the context deadline, and are not
// retried within redialDelay of a failure.
type Publisher struct {
	url   string
	queue string
	log   zerolog.Logger

	dialTimeout time.Duration
	redialDelay time.Duration
	now         func() time.Time

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
}

// NewPublisher returns a Publisher for queue on the broker at url.
func NewPublisher(url, queue string, log zerolog.Logger) *Publisher {
	return &Publisher{
		url:         url,
		queue:       queue,
		log:         log,
		dialTimeout: defaultDialTimeout,
		redialDelay: defaultRedialDelay,
		now:         time.Now,
	}
}

// Publish marshals ev and sends it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev LeaseEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// channel returns an open channel, dialing and declaring the queue when
// needed.  Callers hold p.mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.now().Before(p.nextDial) {
		return nil, ErrBrokerUnavailable
	}
	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		left := time.Until(dl)
		if left <= 0 {
			return nil, context.DeadlineExceeded
		}
		if left < timeout {
			timeout = left
		}
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(timeout),
	})
	if err != nil {
		p.nextDial = p.now().Add(p.redialDelay)
		p.log.Warn().Err(err).Dur("retry_in", p.redialDelay).Msg("event broker dial failed")
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.log.Debug().Str("queue", p.queue).Msg("event publisher connected")
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
