package allocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Locker serializes allocation attempts per quiz. Acquire blocks until the
// quiz is free or ctx is done; the returned func releases the lock.
type Locker interface {
	Acquire(ctx context.Context, quizID string) (func(), error)
}

// LocalLocker is an in-process keyed mutex. Idle keys are dropped so the map
// only holds quizzes with in-flight requests.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*lockSlot)}
}

func (l *LocalLocker) Acquire(ctx context.Context, quizID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[quizID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[quizID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(quizID, slot)
		return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.drop(quizID, slot)
		})
	}, nil
}

func (l *LocalLocker) drop(quizID string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, quizID)
	}
}

// RedisLocker holds a leased SET NX key per quiz so several API instances
// share one serialization unit.
type RedisLocker struct {
	redis  *redis.Client
	logger zerolog.Logger
	ttl    time.Duration
	poll   time.Duration
	prefix string
}

// RedisLockerOptions tunes lease and polling intervals.
type RedisLockerOptions struct {
	TTL       time.Duration
	Poll      time.Duration
	KeyPrefix string
}

func NewRedisLocker(client *redis.Client, logger zerolog.Logger, opts RedisLockerOptions) *RedisLocker {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Poll <= 0 {
		opts.Poll = 25 * time.Millisecond
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "allocation:lock"
	}
	return &RedisLocker{
		redis:  client,
		logger: logger.With().Str("component", "allocation_lock").Logger(),
		ttl:    opts.TTL,
		poll:   opts.Poll,
		prefix: opts.KeyPrefix,
	}
}

const releaseScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

func (l *RedisLocker) Acquire(ctx context.Context, quizID string) (func(), error) {
	key := fmt.Sprintf("%s:%s", l.prefix, quizID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		acquired, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctxErr)
			}
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if acquired {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}

	return func() {
		// Release on a fresh context: the request context may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.redis.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn().Err(err).Str("quiz_id", quizID).Msg("release quiz lock failed")
		}
	}, nil
}
