package authn

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshSessions persists hashed refresh tokens and resolves presented
// tokens to their records.
type RefreshSessions interface {
	Create(ctx context.Context, userID uuid.UUID, plaintext string, expiresAt time.Time) (*RefreshSession, error)
	CreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, plaintext string, expiresAt time.Time) (*RefreshSession, error)

	// ListValid returns sessions that are not revoked and not expired,
	// newest first.
	ListValid(ctx context.Context, userID uuid.UUID) ([]*RefreshSession, error)

	// FindMatching scans the user's valid sessions and verifies each hash
	// against the presented plaintext. The randomized hash rules out an
	// equality index, the scan is bounded by the per-user session cap.
	FindMatching(ctx context.Context, userID uuid.UUID, plaintext string) (*RefreshSession, error)

	// Revoke marks the session revoked, idempotent.
	Revoke(ctx context.Context, sessionID uuid.UUID) error

	// RevokeTx revokes inside a transaction and reports whether this call
	// performed the transition. A false return means the session was already
	// revoked, which callers use to reject replayed redemptions.
	RevokeTx(ctx context.Context, tx bun.IDB, sessionID uuid.UUID) (bool, error)

	// PruneToLimitTx revokes the oldest valid sessions beyond max, keeping
	// the FindMatching scan cheap.
	PruneToLimitTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, max int) error
}

type refreshSessions struct {
	db     *bun.DB
	hasher PasswordHasher
	logger Logger
	now    func() time.Time
}

var _ RefreshSessions = (*refreshSessions)(nil)

type SessionsOption func(*refreshSessions)

// WithSessionsLogger overrides the store's logger.
func WithSessionsLogger(logger Logger) SessionsOption {
	return func(s *refreshSessions) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionsClock overrides the time source used for validity checks.
func WithSessionsClock(now func() time.Time) SessionsOption {
	return func(s *refreshSessions) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRefreshSessionsStore creates a store that hashes token values with the
// given hasher before persisting them.
func NewRefreshSessionsStore(db *bun.DB, hasher PasswordHasher, opts ...SessionsOption) RefreshSessions {
	store := &refreshSessions{
		db:     db,
		hasher: hasher,
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store
}

func (s *refreshSessions) Create(ctx context.Context, userID uuid.UUID, plaintext string, expiresAt time.Time) (*RefreshSession, error) {
	return s.CreateTx(ctx, s.db, userID, plaintext, expiresAt)
}

func (s *refreshSessions) CreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, plaintext string, expiresAt time.Time) (*RefreshSession, error) {
	tokenHash, err := s.hasher.Hash(ctx, plaintext)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash refresh token")
	}

	session := &RefreshSession{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}

	if _, err := tx.NewInsert().Model(session).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refresh session")
	}

	// callers never see the hash
	out := *session
	out.TokenHash = ""

	return &out, nil
}

func (s *refreshSessions) ListValid(ctx context.Context, userID uuid.UUID) ([]*RefreshSession, error) {
	var sessions []*RefreshSession

	err := s.db.NewSelect().
		Model(&sessions).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.revoked_at IS NULL").
		Where("?TableAlias.expires_at > ?", s.now()).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list refresh sessions")
	}

	return sessions, nil
}

func (s *refreshSessions) FindMatching(ctx context.Context, userID uuid.UUID, plaintext string) (*RefreshSession, error) {
	sessions, err := s.ListValid(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, session := range sessions {
		matches, err := s.hasher.Verify(ctx, session.TokenHash, plaintext)
		if err != nil {
			s.logger.Warn("skipping refresh session %s, unreadable hash: %v", session.ID.String(), err)
			continue
		}

		if matches {
			return session, nil
		}
	}

	return nil, ErrSessionNotFound
}

func (s *refreshSessions) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.RevokeTx(ctx, s.db, sessionID)
	return err
}

func (s *refreshSessions) RevokeTx(ctx context.Context, tx bun.IDB, sessionID uuid.UUID) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*RefreshSession)(nil)).
		Set("revoked_at = ?", s.now()).
		Where("id = ?", sessionID).
		Where("revoked_at IS NULL").
		Exec(ctx)

	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke refresh session")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read revocation result")
	}

	return affected == 1, nil
}

func (s *refreshSessions) PruneToLimitTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, max int) error {
	if max <= 0 {
		return nil
	}

	var valid []*RefreshSession

	err := tx.NewSelect().
		Model(&valid).
		Column("id").
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.revoked_at IS NULL").
		Where("?TableAlias.expires_at > ?", s.now()).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to select sessions over limit")
	}

	if len(valid) <= max {
		return nil
	}

	stale := make([]uuid.UUID, 0, len(valid)-max)
	for _, session := range valid[max:] {
		stale = append(stale, session.ID)
	}

	_, err = tx.NewUpdate().
		Model((*RefreshSession)(nil)).
		Set("revoked_at = ?", s.now()).
		Where("id IN (?)", bun.In(stale)).
		Where("revoked_at IS NULL").
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to prune sessions over limit")
	}

	return nil
}
