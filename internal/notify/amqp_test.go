package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keepsake/internal/payload"
	"github.com/roach88/keepsake/internal/testutil"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published []published
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func fixedNow() time.Time { return planFrom }

func TestAMQPScheduler_Schedule(t *testing.T) {
	ch := &fakeChannel{}
	s := newAMQPScheduler(ch, WithNow(fixedNow), WithHorizon(testutil.Days(2)))
	g := scheduledGoal(payload.Schedule{StartDate: testutil.Time("2024-03-01T00:00:00Z"), Frequency: payload.FrequencyDaily})

	require.NoError(t, s.Schedule(context.Background(), g))
	require.Len(t, ch.published, 1)

	p := ch.published[0]
	assert.Equal(t, DefaultExchange, p.exchange)
	assert.Equal(t, RoutingKeySchedule, p.key)
	assert.Equal(t, "application/json", p.msg.ContentType)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)
	assert.NotEmpty(t, p.msg.MessageId)
	assert.Equal(t, planFrom, p.msg.Timestamp)

	var cmd Command
	require.NoError(t, json.Unmarshal(p.msg.Body, &cmd))
	assert.Equal(t, "g1", cmd.GoalID)
	assert.Equal(t, "Walk", cmd.Title)
	assert.Equal(t, "UTC", cmd.TimeZone)
	assert.Equal(t, times("2024-04-01T08:00:00Z", "2024-04-02T08:00:00Z"), cmd.Reminders)
}

func TestAMQPScheduler_Cancel(t *testing.T) {
	ch := &fakeChannel{}
	s := newAMQPScheduler(ch, WithNow(fixedNow))

	require.NoError(t, s.Cancel(context.Background(), "g1"))
	require.Len(t, ch.published, 1)
	assert.Equal(t, RoutingKeyCancel, ch.published[0].key)

	var cmd Command
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &cmd))
	assert.Equal(t, Command{Op: RoutingKeyCancel, GoalID: "g1", IssuedAt: planFrom}, cmd)
}

func TestAMQPScheduler_PublishError(t *testing.T) {
	boom := errors.New("channel closed")
	s := newAMQPScheduler(&fakeChannel{err: boom}, WithNow(fixedNow))

	err := s.Cancel(context.Background(), "g1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAMQPScheduler_Close(t *testing.T) {
	ch := &fakeChannel{}
	s := newAMQPScheduler(ch)
	require.NoError(t, s.Close())
	assert.True(t, ch.closed)
}
