// Package notify delivers goal reminder schedules to an external
// notification system.
//
// The engine consumes a Scheduler as an injected capability. Backends:
//   - Nop: discards every call (the default)
//   - AMQPScheduler: publishes schedule/cancel commands to RabbitMQ
//   - RedisScheduler: keeps each goal's upcoming reminder instants in a
//     Redis sorted set
package notify

import (
	"context"

	"github.com/roach88/keepsake/internal/payload"
)

// Scheduler installs and removes reminders for goals.
//
// Both methods are idempotent. Schedule replaces whatever reminders were
// previously installed for goal.ID; Cancel removes all pending and delivered
// reminders tagged with goalID and succeeds when there are none.
type Scheduler interface {
	Schedule(ctx context.Context, goal payload.Goal) error
	Cancel(ctx context.Context, goalID string) error
}

// Nop is a Scheduler that does nothing.
type Nop struct{}

// Schedule does nothing.
func (Nop) Schedule(context.Context, payload.Goal) error { return nil }

// Cancel does nothing.
func (Nop) Cancel(context.Context, string) error { return nil }
