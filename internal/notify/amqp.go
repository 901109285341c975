package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/roach88/keepsake/internal/payload"
)

const (
	// DefaultExchange is the durable direct exchange reminder commands are
	// published to.
	DefaultExchange = "keepsake.notifications"

	RoutingKeySchedule = "schedule"
	RoutingKeyCancel   = "cancel"
)

// Command is the JSON body of every published message.
type Command struct {
	Op        string      `json:"op"`
	GoalID    string      `json:"goalID"`
	Title     string      `json:"title,omitempty"`
	TimeZone  string      `json:"timezone,omitempty"`
	Reminders []time.Time `json:"reminders,omitempty"`
	IssuedAt  time.Time   `json:"issuedAt"`
}

// publisher is the subset of *amqp.Channel the scheduler uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPScheduler publishes schedule and cancel commands to RabbitMQ. A
// downstream consumer owns delivery; Schedule carries the full reminder
// plan so the consumer can replace what it holds for the goal.
type AMQPScheduler struct {
	conn     *amqp.Connection
	channel  publisher
	exchange string
	opts     options
}

// NewAMQPScheduler dials amqpURL and declares the notification exchange.
func NewAMQPScheduler(amqpURL string, opts ...Option) (*AMQPScheduler, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		DefaultExchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	s := newAMQPScheduler(ch, opts...)
	s.conn = conn
	return s, nil
}

func newAMQPScheduler(ch publisher, opts ...Option) *AMQPScheduler {
	return &AMQPScheduler{
		channel:  ch,
		exchange: DefaultExchange,
		opts:     applyOptions(opts),
	}
}

// Schedule publishes the goal's reminder plan for the configured horizon.
func (s *AMQPScheduler) Schedule(ctx context.Context, goal payload.Goal) error {
	reminders, err := Plan(goal, s.opts.now(), s.opts.horizon)
	if err != nil {
		return err
	}
	return s.publish(ctx, RoutingKeySchedule, Command{
		Op:        RoutingKeySchedule,
		GoalID:    goal.ID,
		Title:     goal.Title,
		TimeZone:  goal.Schedule.TimeZone,
		Reminders: reminders,
	})
}

// Cancel publishes a cancel command for goalID.
func (s *AMQPScheduler) Cancel(ctx context.Context, goalID string) error {
	return s.publish(ctx, RoutingKeyCancel, Command{Op: RoutingKeyCancel, GoalID: goalID})
}

func (s *AMQPScheduler) publish(ctx context.Context, key string, cmd Command) error {
	cmd.IssuedAt = s.opts.now()
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal %s command: %w", key, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    cmd.IssuedAt,
	}
	err = s.channel.PublishWithContext(ctx, s.exchange, key,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s command for goal %s: %w", key, cmd.GoalID, err)
	}

	s.opts.logger.Debug("published reminder command",
		zap.String("op", key),
		zap.String("goal_id", cmd.GoalID),
		zap.Int("reminders", len(cmd.Reminders)))
	return nil
}

// Close closes the channel and the connection.
func (s *AMQPScheduler) Close() error {
	var firstErr error
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
