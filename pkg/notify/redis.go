package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/ecsgraph/pkg/cache"
	"github.com/matzehuels/ecsgraph/pkg/ecs"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "ecsgraph:events"

// RedisStream appends one stream entry per committed batch:
//
//	XADD ecsgraph:events * scope <uuid> count <n> events <json records>
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *log.Logger
}

// NewRedisStream creates a stream sink. An empty stream uses
// [DefaultStream]; a nil logger uses log.Default().
func NewRedisStream(client *redis.Client, stream string, logger *log.Logger) *RedisStream {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisStream{client: client, stream: stream, logger: logger}
}

// WithMaxLen caps the stream at approximately n entries. Zero disables
// trimming.
func (s *RedisStream) WithMaxLen(n int64) *RedisStream {
	s.maxLen = n
	return s
}

// Stream returns the stream key.
func (s *RedisStream) Stream() string { return s.stream }

// Notify implements [ecs.Listener].
func (s *RedisStream) Notify(ctx context.Context, b ecs.Batch) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DeliveryTimeout)
	defer cancel()

	if err := s.Publish(ctx, b); err != nil {
		s.logger.Error("publish batch", "stream", s.stream, "scope", b.ScopeID, "err", err)
	}
}

// Publish appends b to the stream, retrying connection failures.
func (s *RedisStream) Publish(ctx context.Context, b ecs.Batch) error {
	events, err := json.Marshal(Records(b))
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"scope":  b.ScopeID.String(),
			"count":  len(b.Events),
			"events": string(events),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	return cache.RetryWithBackoff(ctx, func() error {
		if err := s.client.XAdd(ctx, args).Err(); err != nil {
			return cache.Classify(fmt.Errorf("xadd %s: %w", s.stream, err))
		}
		return nil
	})
}

var _ ecs.Listener = (*RedisStream)(nil)
