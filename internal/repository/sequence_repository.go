package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Increments the counter but never lets it fall below the supplied floor, so a
// flushed key resumes above every value the clock sequence could have issued.
var nextSequenceScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
local floor = tonumber(ARGV[1])
if current < floor then
  redis.call('SET', KEYS[1], floor)
  current = floor
end
return current
`)

// SequenceRepository hands out identifier ticks shared by every API replica.
type SequenceRepository struct {
	client redis.Scripter
	key    string
	now    func() time.Time
}

// NewSequenceRepository constructs a Redis backed sequence stored under key.
func NewSequenceRepository(client redis.Scripter, key string) *SequenceRepository {
	return &SequenceRepository{client: client, key: key, now: time.Now}
}

// Next returns the next tick.
func (r *SequenceRepository) Next(ctx context.Context) (uint64, error) {
	floor := r.now().UnixMilli()
	value, err := nextSequenceScript.Run(ctx, r.client, []string{r.key}, floor).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis sequence %s: %w", r.key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("redis sequence %s: negative value %d", r.key, value)
	}
	return uint64(value), nil
}
