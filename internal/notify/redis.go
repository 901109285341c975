package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roach88/keepsake/internal/payload"
)

// DefaultKeyPrefix prefixes every reminder key.
const DefaultKeyPrefix = "keepsake:reminders:"

// RedisScheduler keeps each goal's upcoming reminders in a sorted set keyed
// by goal ID. Members are RFC 3339 instants scored by Unix seconds, so a
// poller can ZRANGEBYSCORE the due window. Keys expire at the end of the
// horizon.
type RedisScheduler struct {
	client *redis.Client
	prefix string
	opts   options
}

// NewRedisScheduler connects to redisURL and checks the connection.
func NewRedisScheduler(ctx context.Context, redisURL string, opts ...Option) (*RedisScheduler, error) {
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisScheduler(client, opts...), nil
}

func newRedisScheduler(client *redis.Client, opts ...Option) *RedisScheduler {
	return &RedisScheduler{
		client: client,
		prefix: DefaultKeyPrefix,
		opts:   applyOptions(opts),
	}
}

// Key returns the sorted set key for goalID.
func (s *RedisScheduler) Key(goalID string) string {
	return s.prefix + goalID
}

// Schedule atomically replaces the goal's sorted set with its current plan.
// A goal without upcoming reminders ends up with no key at all.
func (s *RedisScheduler) Schedule(ctx context.Context, goal payload.Goal) error {
	reminders, err := Plan(goal, s.opts.now(), s.opts.horizon)
	if err != nil {
		return err
	}

	key := s.Key(goal.ID)
	members := make([]redis.Z, 0, len(reminders))
	for _, at := range reminders {
		members = append(members, redis.Z{
			Score:  float64(at.Unix()),
			Member: at.Format(time.RFC3339),
		})
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, key, members...)
			pipe.Expire(ctx, key, s.opts.horizon)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store reminders for goal %s: %w", goal.ID, err)
	}

	s.opts.logger.Debug("stored reminders",
		zap.String("goal_id", goal.ID),
		zap.Int("reminders", len(members)))
	return nil
}

// Cancel deletes the goal's sorted set.
func (s *RedisScheduler) Cancel(ctx context.Context, goalID string) error {
	if err := s.client.Del(ctx, s.Key(goalID)).Err(); err != nil {
		return fmt.Errorf("failed to cancel reminders for goal %s: %w", goalID, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisScheduler) Close() error {
	return s.client.Close()
}
