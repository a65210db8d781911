package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-allocator/internal/logging"
)

type state string

const (
	stateIdle       state = "idle"
	stateValidating state = "validating"
	stateReserving  state = "reserving"
	stateCommitted  state = "committed"
	stateFailed     state = "failed"
)

const defaultMaxAttempts = 3

// CoordinatorOptions configures optional collaborators. Zero values fall back
// to in-process defaults.
type CoordinatorOptions struct {
	Locker        Locker
	Sampler       Sampler
	Cache         AllocationCache
	Metrics       *Metrics
	DefaultPolicy Policy
	// MaxAttempts bounds full-transaction retries after a concurrent
	// modification of the bank or the ledger.
	MaxAttempts int
	// LockWait caps how long a request waits for the quiz lock; zero means
	// the request context alone decides.
	LockWait time.Duration
	Clock    func() time.Time
}

// Coordinator hands out disjoint question sets per quiz. Requests for one quiz
// are serialized through Locker; different quizzes never contend.
type Coordinator struct {
	pool          *PoolIndex
	bank          BankStore
	ledger        LedgerStore
	locker        Locker
	sampler       Sampler
	cache         AllocationCache
	metrics       *Metrics
	logger        zerolog.Logger
	defaultPolicy Policy
	maxAttempts   int
	lockWait      time.Duration
	now           func() time.Time
}

func NewCoordinator(bank BankStore, ledger LedgerStore, logger zerolog.Logger, opts CoordinatorOptions) *Coordinator {
	if opts.Locker == nil {
		opts.Locker = NewLocalLocker()
	}
	if opts.Sampler == nil {
		opts.Sampler = UniformSampler{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.DefaultPolicy == "" {
		opts.DefaultPolicy = PolicyStrict
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Coordinator{
		pool:          NewPoolIndex(bank),
		bank:          bank,
		ledger:        ledger,
		locker:        opts.Locker,
		sampler:       opts.Sampler,
		cache:         opts.Cache,
		metrics:       opts.Metrics,
		logger:        logger.With().Str("component", "allocation_coordinator").Logger(),
		defaultPolicy: opts.DefaultPolicy,
		maxAttempts:   opts.MaxAttempts,
		lockWait:      opts.LockWait,
		now:           opts.Clock,
	}
}

// DefaultPolicy is applied to requests that do not name a policy.
func (c *Coordinator) DefaultPolicy() Policy { return c.defaultPolicy }

// Allocate commits a new allocation for req or returns *InvalidQuotaError,
// *InsufficientPoolError, or an infrastructure error. A failed call leaves the
// ledger untouched.
func (c *Coordinator) Allocate(ctx context.Context, req Request) (Result, error) {
	if req.QuizID == "" {
		return Result{}, ErrMissingQuiz
	}
	policy, err := ParsePolicy(string(req.Policy), c.defaultPolicy)
	if err != nil {
		return Result{}, err
	}

	logger := c.loggerFor(ctx).With().
		Str("quiz_id", req.QuizID).
		Str("requester_id", req.RequesterID).
		Str("policy", string(policy)).
		Logger()
	logger.Debug().Str("state", string(stateIdle)).Msg("allocation requested")

	var lastConflict error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		alloc, err := c.attempt(ctx, req, policy, logger)
		if err == nil {
			outcome := outcomeCommitted
			if len(alloc.Shortfall) > 0 {
				outcome = outcomeShort
			}
			c.metrics.observe(policy, outcome)
			c.remember(ctx, alloc, logger)
			logger.Info().
				Str("state", string(stateCommitted)).
				Str("allocation_id", alloc.ID).
				Int64("generation", alloc.Generation).
				Int("questions", len(alloc.QuestionIDs)).
				Msg("allocation committed")
			return resultFrom(alloc), nil
		}

		if !isRetryable(err) {
			c.metrics.observe(policy, classify(err))
			logger.Info().Err(err).Str("state", string(stateFailed)).Int("attempt", attempt).Msg("allocation failed")
			return Result{}, err
		}
		lastConflict = err
		c.metrics.conflictRetries.Inc()
		logger.Warn().Err(err).Int("attempt", attempt).Msg("allocation conflicted, retrying with fresh snapshot")
	}

	c.metrics.observe(policy, outcomeInsufficient)
	logger.Info().Str("state", string(stateFailed)).Msg("allocation retries exhausted")
	return Result{}, &InsufficientPoolError{QuizID: req.QuizID, Cause: lastConflict}
}

func (c *Coordinator) attempt(ctx context.Context, req Request, policy Policy, logger zerolog.Logger) (Allocation, error) {
	logger.Debug().Str("state", string(stateValidating)).Msg("taking pool snapshot")
	snap, err := c.pool.Snapshot(ctx, FilterFor(req.Quota))
	if err != nil {
		return Allocation{}, err
	}
	quota, err := Resolve(req.Quota, snap)
	if err != nil {
		return Allocation{}, err
	}
	if quota.Kind == QuotaFlat {
		snap = snap.Flatten()
	}

	unlock, err := c.acquire(ctx, req.QuizID)
	if err != nil {
		return Allocation{}, err
	}
	defer unlock()

	logger.Debug().Str("state", string(stateReserving)).Int("requested", quota.Total()).Msg("quiz lock held")
	ledger, err := c.ledger.Load(ctx, req.QuizID)
	if err != nil {
		return Allocation{}, fmt.Errorf("load ledger: %w", err)
	}

	p, err := planReservation(req.QuizID, policy, quota, snap, ledger)
	if err != nil {
		return Allocation{}, err
	}

	ids := make([]string, 0, quota.Total())
	perSection := make([]SectionCount, 0, len(p.quota))
	for _, q := range p.quota {
		drawn := c.sampler.Draw(p.available[q.SectionID], q.RequestedCount)
		ids = append(ids, drawn...)
		perSection = append(perSection, SectionCount{SectionID: q.SectionID, Count: len(drawn)})
	}

	if err := c.verifyStillPresent(ctx, ids); err != nil {
		return Allocation{}, err
	}

	alloc := Allocation{
		ID:          uuid.NewString(),
		QuizID:      req.QuizID,
		RequesterID: req.RequesterID,
		QuestionIDs: ids,
		PerSection:  perSection,
		Generation:  p.generation,
		Policy:      policy,
		Shortfall:   p.shortfall,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.ledger.Commit(ctx, alloc, p.recycled); err != nil {
		return Allocation{}, fmt.Errorf("commit allocation: %w", err)
	}
	if p.recycled {
		c.metrics.recycles.Inc()
		logger.Info().Int64("generation", p.generation).Msg("pool exhausted, started new generation")
	}
	return alloc, nil
}

// loggerFor prefers the request-scoped logger so allocation logs carry the
// request id.
func (c *Coordinator) loggerFor(ctx context.Context) zerolog.Logger {
	if logger, ok := logging.Lookup(ctx); ok {
		return logger.With().Str("component", "allocation_coordinator").Logger()
	}
	return c.logger
}

func (c *Coordinator) acquire(ctx context.Context, quizID string) (func(), error) {
	waitCtx := ctx
	if c.lockWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.lockWait)
		defer cancel()
	}
	start := time.Now()
	unlock, err := c.locker.Acquire(waitCtx, quizID)
	c.metrics.lockWait.Observe(time.Since(start).Seconds())
	return unlock, err
}

func (c *Coordinator) verifyStillPresent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	existing, err := c.bank.Existing(ctx, ids)
	if err != nil {
		return fmt.Errorf("verify drawn questions: %w", err)
	}
	var missing []string
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &ConcurrentModificationError{Missing: missing}
	}
	return nil
}

func (c *Coordinator) remember(ctx context.Context, alloc Allocation, logger zerolog.Logger) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, alloc); err != nil {
		logger.Warn().Err(err).Str("allocation_id", alloc.ID).Msg("cache allocation failed")
	}
}

// ResetGeneration starts a new generation for quizID, making every question
// available again. Existing allocations are kept.
func (c *Coordinator) ResetGeneration(ctx context.Context, quizID string) (int64, error) {
	if quizID == "" {
		return 0, ErrMissingQuiz
	}
	unlock, err := c.acquire(ctx, quizID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	generation, err := c.ledger.Reset(ctx, quizID)
	if err != nil {
		return 0, fmt.Errorf("reset generation: %w", err)
	}
	c.metrics.recycles.Inc()
	logger := c.loggerFor(ctx)
	logger.Info().Str("quiz_id", quizID).Int64("generation", generation).Msg("generation reset")
	return generation, nil
}

// Get returns a committed allocation, preferring the cache.
func (c *Coordinator) Get(ctx context.Context, allocationID string) (Allocation, error) {
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, allocationID); err == nil && cached != nil {
			return *cached, nil
		}
	}
	alloc, err := c.ledger.Get(ctx, allocationID)
	if err != nil {
		return Allocation{}, err
	}
	c.remember(ctx, alloc, c.logger)
	return alloc, nil
}

func isRetryable(err error) bool {
	var cm *ConcurrentModificationError
	return errors.As(err, &cm) || errors.Is(err, ErrLedgerConflict)
}

func classify(err error) string {
	var invalid *InvalidQuotaError
	var insufficient *InsufficientPoolError
	switch {
	case errors.As(err, &invalid):
		return outcomeInvalid
	case errors.As(err, &insufficient):
		return outcomeInsufficient
	default:
		return outcomeError
	}
}
