package notify

import (
	"context"
	"fmt"
	"io"
)

// Backend names accepted by Open.
const (
	BackendNone  = "none"
	BackendAMQP  = "amqp"
	BackendRedis = "redis"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the scheduler named by backend. url is the broker or server
// address and is ignored for BackendNone. The returned Closer releases the
// backend's connection.
func Open(ctx context.Context, backend, url string, opts ...Option) (Scheduler, io.Closer, error) {
	switch backend {
	case "", BackendNone:
		return Nop{}, nopCloser{}, nil
	case BackendAMQP:
		s, err := NewAMQPScheduler(url, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendRedis:
		s, err := NewRedisScheduler(ctx, url, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown scheduler backend %q", backend)
	}
}
