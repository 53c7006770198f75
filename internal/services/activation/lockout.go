package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlockKeyPrefix namespaces the per-user lockout state.
const BlockKeyPrefix = "solvix_activation_block:"

const blockedUntilField = "blocked_until"

// recordFailure increments the counter of KEYS[1] in one step. The first
// failure starts the window; reaching the maximum stores the block end and
// extends the key to a full window. An expired block is discarded first.
// Returns {attempts left, block end in unix ms or 0}.
var recordFailure = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local max = tonumber(ARGV[2])
local window = tonumber(ARGV[3])

local blocked = tonumber(redis.call('HGET', key, 'blocked_until') or '0')
if blocked > 0 and now >= blocked then
	redis.call('DEL', key)
	blocked = 0
end
if blocked > 0 then
	return {0, blocked}
end

local attempts = redis.call('HINCRBY', key, 'attempts', 1)
if attempts == 1 then
	redis.call('PEXPIRE', key, window)
end
if attempts >= max then
	local untilMs = now + window
	redis.call('HSET', key, 'blocked_until', untilMs)
	redis.call('PEXPIRE', key, window)
	return {0, untilMs}
end
return {max - attempts, 0}
`)

// Lockout counts failed activations per user. maxAttempts failures within
// window block every further attempt for window.
type Lockout struct {
	rdb         redis.Cmdable
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewLockout creates a Lockout keeping its counters in rdb.
func NewLockout(rdb redis.Cmdable, maxAttempts int, window time.Duration) *Lockout {
	return &Lockout{
		rdb:         rdb,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

func blockKey(userID string) string {
	return BlockKeyPrefix + userID
}

// Check returns the end of the current block, if any.
func (l *Lockout) Check(ctx context.Context, userID string) (*time.Time, error) {
	const op = "services.activation.Lockout.Check"
	ms, err := l.rdb.HGet(ctx, blockKey(userID), blockedUntilField).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	until := time.UnixMilli(ms).UTC()
	if !l.now().Before(until) {
		return nil, nil
	}
	return &until, nil
}

// RecordFailure counts one failed attempt. It returns the attempts left before
// a block and, when the user is blocked, the end of the block.
func (l *Lockout) RecordFailure(ctx context.Context, userID string) (int, *time.Time, error) {
	const op = "services.activation.Lockout.RecordFailure"

	res, err := recordFailure.Run(ctx, l.rdb, []string{blockKey(userID)},
		l.now().UnixMilli(), l.maxAttempts, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(res) != 2 {
		return 0, nil, fmt.Errorf("%s: unexpected script reply %v", op, res)
	}
	if res[1] == 0 {
		return int(res[0]), nil, nil
	}
	until := time.UnixMilli(res[1]).UTC()
	return int(res[0]), &until, nil
}

// Reset clears the state of userID after a successful activation.
func (l *Lockout) Reset(ctx context.Context, userID string) error {
	const op = "services.activation.Lockout.Reset"
	if err := l.rdb.Del(ctx, blockKey(userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
