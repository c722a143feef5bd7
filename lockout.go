package authn

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// recordFailureSQL counts a failure in a single atomic statement so two
// concurrent failing requests can never both observe the same count. All SET
// expressions evaluate against the pre-update row:
//   - an active lock freezes the record (failures while locked are no-ops)
//   - an expired window restarts the count at 1
//   - otherwise the count increments, locking once it reaches the threshold
var recordFailureSQL = `INSERT INTO login_attempts (id, email, origin, count, first_attempt_at, locked_until)
VALUES (?, ?, ?, 1, ?, CASE WHEN 1 >= ? THEN ? ELSE NULL END)
ON CONFLICT (email, origin) DO UPDATE SET
	count = CASE
		WHEN login_attempts.locked_until IS NOT NULL AND login_attempts.locked_until > ? THEN login_attempts.count
		WHEN login_attempts.first_attempt_at <= ? THEN 1
		ELSE login_attempts.count + 1
	END,
	first_attempt_at = CASE
		WHEN login_attempts.locked_until IS NOT NULL AND login_attempts.locked_until > ? THEN login_attempts.first_attempt_at
		WHEN login_attempts.first_attempt_at <= ? THEN ?
		ELSE login_attempts.first_attempt_at
	END,
	locked_until = CASE
		WHEN login_attempts.locked_until IS NOT NULL AND login_attempts.locked_until > ? THEN login_attempts.locked_until
		WHEN login_attempts.first_attempt_at <= ? THEN NULL
		WHEN login_attempts.count + 1 >= ? THEN ?
		ELSE NULL
	END;`

// LockoutGuard tracks failed attempts per (email, origin) pair and enforces
// temporary lockout. It never fails a normal counter operation, only
// AssertNotLocked signals ErrAccountLocked.
type LockoutGuard struct {
	db           *bun.DB
	maxAttempts  int
	window       time.Duration
	lockDuration time.Duration
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

type LockoutOption func(*LockoutGuard)

// WithLockoutLogger overrides the guard's logger.
func WithLockoutLogger(logger Logger) LockoutOption {
	return func(g *LockoutGuard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithLockoutActivitySink emits a lockout event when a record transitions to
// locked.
func WithLockoutActivitySink(sink ActivitySink) LockoutOption {
	return func(g *LockoutGuard) {
		g.activitySink = normalizeActivitySink(sink)
	}
}

// WithLockoutClock overrides the time source, used by tests to advance past
// windows and lock expiries.
func WithLockoutClock(now func() time.Time) LockoutOption {
	return func(g *LockoutGuard) {
		if now != nil {
			g.now = now
		}
	}
}

// NewLockoutGuard creates a guard using the thresholds from a validated
// Config.
func NewLockoutGuard(db *bun.DB, cfg *Config, opts ...LockoutOption) *LockoutGuard {
	guard := &LockoutGuard{
		db:           db,
		maxAttempts:  cfg.MaxLoginAttempts,
		window:       cfg.AttemptWindow,
		lockDuration: cfg.LockDuration,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(guard)
		}
	}

	return guard
}

// AssertNotLocked fails with ErrAccountLocked while a lock is in effect. A
// lock whose expiry has passed self heals: the record resets to a fresh
// window before the call returns success.
func (g *LockoutGuard) AssertNotLocked(ctx context.Context, email, origin string) error {
	attempt, err := g.find(ctx, email, origin)
	if err != nil {
		return err
	}

	if attempt == nil || attempt.LockedUntil == nil {
		return nil
	}

	now := g.now()
	if attempt.LockedUntil.After(now) {
		return ErrAccountLocked
	}

	if err := g.clear(ctx, email, origin, now); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear stale lockout")
	}

	return nil
}

// RecordFailure increments the failure counter for the pair, creating the
// record on first failure. Reaching the threshold inside the window
// transitions the record to locked. Failures while locked do not extend the
// lock.
func (g *LockoutGuard) RecordFailure(ctx context.Context, email, origin string) error {
	now := g.now()
	windowStart := now.Add(-g.window)
	lockUntil := now.Add(g.lockDuration)

	_, err := g.db.NewRaw(recordFailureSQL,
		uuid.NewString(), email, origin, now, g.maxAttempts, lockUntil,
		now, windowStart,
		now, windowStart, now,
		now, windowStart, g.maxAttempts, lockUntil,
	).Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record login failure")
	}

	g.emitIfLocked(ctx, email, origin, lockUntil)

	return nil
}

// Reset clears the counter and any lock for the pair, called after a
// successful login.
func (g *LockoutGuard) Reset(ctx context.Context, email, origin string) error {
	if err := g.clear(ctx, email, origin, g.now()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reset login attempts")
	}
	return nil
}

func (g *LockoutGuard) find(ctx context.Context, email, origin string) (*LoginAttempt, error) {
	attempt := &LoginAttempt{}
	err := g.db.NewSelect().
		Model(attempt).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.origin = ?", origin).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load login attempt record")
	}

	return attempt, nil
}

func (g *LockoutGuard) clear(ctx context.Context, email, origin string, now time.Time) error {
	_, err := g.db.NewUpdate().
		Model((*LoginAttempt)(nil)).
		Set("count = 0").
		Set("first_attempt_at = ?", now).
		Set("locked_until = NULL").
		Where("email = ?", email).
		Where("origin = ?", origin).
		Exec(ctx)

	return err
}

// emitIfLocked reports the lock transition caused by this failure. The locked
// no-op branch of the upsert keeps the previous locked_until, so only the
// call that set our own expiry emits.
func (g *LockoutGuard) emitIfLocked(ctx context.Context, email, origin string, lockUntil time.Time) {
	attempt, err := g.find(ctx, email, origin)
	if err != nil || attempt == nil || attempt.LockedUntil == nil {
		return
	}

	delta := attempt.LockedUntil.Sub(lockUntil)
	if delta < -time.Second || delta > time.Second {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventLockoutTriggered,
		Actor:     ActorRef{Type: "unknown"},
		Metadata: map[string]any{
			"email":        email,
			"origin":       origin,
			"count":        attempt.Count,
			"locked_until": attempt.LockedUntil,
		},
		OccurredAt: g.now(),
	}

	if err := g.activitySink.Record(ctx, event); err != nil {
		g.logger.Warn("activity sink record error: %v", err)
	}
}
