package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/omriShneor/engage_ai/internal/metrics"
)

const connectTimeout = 5 * time.Second

// AMQPConfig holds AMQP publisher configuration
type AMQPConfig struct {
	URL          string
	QueueName    string
	ExchangeName string
	RoutingKey   string
}

// AMQPPublisher publishes envelopes as persistent JSON messages
type AMQPPublisher struct {
	logger    *logrus.Logger
	config    AMQPConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
}

// NewAMQPPublisher creates a publisher; the connection is made lazily on first publish
func NewAMQPPublisher(logger *logrus.Logger, config AMQPConfig) *AMQPPublisher {
	if config.RoutingKey == "" {
		config.RoutingKey = config.QueueName
	}
	return &AMQPPublisher{
		logger: logger,
		config: config,
	}
}

// Connect establishes the connection and declares the queue
func (p *AMQPPublisher) Connect() error {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()
	return p.connectLocked()
}

func (p *AMQPPublisher) connectLocked() error {
	if p.connected {
		return nil
	}

	if p.config.URL == "" || p.config.QueueName == "" {
		return fmt.Errorf("AMQP URL or queue name not configured")
	}

	conn, err := amqp.DialConfig(p.config.URL, amqp.Config{
		Dial: amqp.DefaultDial(connectTimeout),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		p.config.QueueName,
		true,  // Durable
		false, // Delete when unused
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare AMQP queue: %w", err)
	}

	p.conn = conn
	p.channel = channel
	p.connected = true

	// Mark disconnected when the broker drops us so the next publish reconnects
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err := <-closed; err != nil {
			p.logger.WithError(err).Warn("AMQP connection closed")
		}
		p.connMutex.Lock()
		if p.conn == conn {
			p.connected = false
		}
		p.connMutex.Unlock()
	}()

	p.logger.WithFields(logrus.Fields{
		"queue": p.config.QueueName,
	}).Info("Connected to AMQP server")

	return nil
}

// Publish sends the envelope, connecting first if needed
func (p *AMQPPublisher) Publish(ctx context.Context, event Envelope) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if err := p.connectLocked(); err != nil {
		metrics.EventsPublished.WithLabelValues("amqp", "error").Inc()
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	err = p.channel.Publish(
		p.config.ExchangeName,
		p.config.RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Type:         event.EventType,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		p.closeLocked()
		metrics.EventsPublished.WithLabelValues("amqp", "error").Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.EventsPublished.WithLabelValues("amqp", "ok").Inc()
	return nil
}

// IsConnected returns the connection status
func (p *AMQPPublisher) IsConnected() bool {
	p.connMutex.RLock()
	defer p.connMutex.RUnlock()
	return p.connected
}

// Disconnect closes the AMQP connection
func (p *AMQPPublisher) Disconnect() {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if !p.connected {
		return
	}
	p.closeLocked()
	p.logger.Info("Disconnected from AMQP server")
}

// closeLocked releases the channel and connection so a reconnect starts clean
func (p *AMQPPublisher) closeLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.connected = false
}
