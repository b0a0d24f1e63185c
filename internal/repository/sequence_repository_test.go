package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripterStub evaluates the sequence script in memory.
type scripterStub struct {
	values map[string]int64
	err    error
	calls  int
}

func (s *scripterStub) run(keys []string, args []interface{}) *redis.Cmd {
	s.calls++
	if s.err != nil {
		return redis.NewCmdResult(nil, s.err)
	}
	floor := args[0].(int64)
	current := s.values[keys[0]] + 1
	if current < floor {
		current = floor
	}
	s.values[keys[0]] = current
	return redis.NewCmdResult(current, nil)
}

func (s *scripterStub) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return s.run(keys, args)
}

func (s *scripterStub) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return s.run(keys, args)
}

func (s *scripterStub) EvalRO(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return s.run(keys, args)
}

func (s *scripterStub) EvalShaRO(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return s.run(keys, args)
}

func (s *scripterStub) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (s *scripterStub) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("sha", nil)
}

func TestSequenceRepositoryStartsAtClockFloor(t *testing.T) {
	stub := &scripterStub{values: map[string]int64{}}
	repo := NewSequenceRepository(stub, "grievances:id_sequence")
	fixed := time.UnixMilli(1_700_000_000_000)
	repo.now = func() time.Time { return fixed }

	first, err := repo.Next(context.Background())
	require.NoError(t, err)
	second, err := repo.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1_700_000_000_000), first)
	assert.Equal(t, first+1, second)
}

func TestSequenceRepositoryPropagatesErrors(t *testing.T) {
	stub := &scripterStub{values: map[string]int64{}, err: errors.New("connection refused")}
	repo := NewSequenceRepository(stub, "seq")

	_, err := repo.Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis sequence seq")
}
