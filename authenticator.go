package authn

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

// Auther composes the lockout guard, credential store, password hasher,
// token signer, and refresh session store into the three public operations.
type Auther struct {
	repo         RepositoryManager
	lockout      *LockoutGuard
	hasher       PasswordHasher
	tokens       *TokenService
	maxSessions  int
	logger       Logger
	activitySink ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator wires the orchestrator. The config must have been
// validated, construction itself performs no I/O.
func NewAuthenticator(repo RepositoryManager, lockout *LockoutGuard, tokens *TokenService, cfg *Config) *Auther {
	return &Auther{
		repo:         repo,
		lockout:      lockout,
		hasher:       NewArgon2Hasher(),
		tokens:       tokens,
		maxSessions:  cfg.MaxSessionsPerUser,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithPasswordHasher overrides the default argon2id hasher.
func (s *Auther) WithPasswordHasher(hasher PasswordHasher) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// Register creates a user with a hashed password. The email is normalized
// before the uniqueness check and the write.
func (s *Auther) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	email = NormalizeEmail(email)

	existing, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
	}

	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user, err := s.repo.Users().Register(ctx, &User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		Active:       true,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
	}

	s.emitAuthEvent(ctx, ActivityEventRegisterSuccess, s.actorFromUser(user), user.ID.String(), map[string]any{
		"email": user.Email,
	})

	return &RegisterResult{ID: user.ID, Email: user.Email}, nil
}

// Login verifies credentials under lockout control and returns a fresh token
// pair. The origin string scopes lockout tracking only, it never reaches the
// tokens.
func (s *Auther) Login(ctx context.Context, email, password, origin string) (*TokenPair, error) {
	email = NormalizeEmail(email)

	if err := s.lockout.AssertNotLocked(ctx, email, origin); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email":  email,
			"origin": origin,
			"error":  err.Error(),
		})
		return nil, err
	}

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.emitLoginFailure(ctx, email, origin, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if !user.Active {
		s.emitLoginFailure(ctx, email, origin, ErrAccountInactive)
		return nil, ErrAccountInactive
	}

	match, err := s.hasher.Verify(ctx, user.PasswordHash, password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify password")
	}

	if !match {
		if err := s.lockout.RecordFailure(ctx, email, origin); err != nil {
			s.logger.Error("failed to record login failure: %v", err)
		}
		s.emitLoginFailure(ctx, email, origin, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := s.lockout.Reset(ctx, email, origin); err != nil {
		s.logger.Error("failed to reset login attempts: %v", err)
	}

	pair, err := s.issueTokenPair(ctx, user, nil)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromUser(user), user.ID.String(), map[string]any{
		"email":  email,
		"origin": origin,
	})

	return pair, nil
}

// Refresh redeems a refresh token exactly once, returning a replacement
// pair. Revocation of the matched session and creation of its successor run
// in one transaction, so a racing duplicate call cannot redeem the same
// token twice and a crash cannot strand the user without a valid session.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.emitRefreshFailure(ctx, "", err)
		return nil, ErrUnauthorized
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		s.emitRefreshFailure(ctx, claims.Subject, err)
		return nil, ErrUnauthorized
	}

	session, err := s.repo.RefreshSessions().FindMatching(ctx, subjectID, refreshToken)
	if err != nil {
		if goerrors.IsNotFound(err) {
			s.emitRefreshFailure(ctx, claims.Subject, ErrSessionNotFound)
			return nil, ErrUnauthorized
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve refresh session")
	}

	user, err := s.repo.Users().GetUserByID(ctx, subjectID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.emitRefreshFailure(ctx, claims.Subject, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reload user during refresh")
	}

	if !user.Active {
		s.emitRefreshFailure(ctx, claims.Subject, ErrAccountInactive)
		return nil, ErrAccountInactive
	}

	pair, err := s.issueTokenPair(ctx, user, &session.ID)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventRefreshSuccess, s.actorFromUser(user), user.ID.String(), map[string]any{
		"rotated_session": session.ID.String(),
	})

	return pair, nil
}

// issueTokenPair signs the access and refresh tokens concurrently, then
// persists the new session. Persistence only happens after both signatures
// succeed. When predecessor is set, the same transaction claims and revokes
// it, a second redeemer of the same token loses the claim and is rejected.
func (s *Auther) issueTokenPair(ctx context.Context, user *User, predecessor *uuid.UUID) (*TokenPair, error) {
	identity := userIdentity{user: user}

	var accessToken, refreshToken string
	var refreshExpiry time.Time

	var g errgroup.Group

	g.Go(func() error {
		token, err := s.tokens.SignAccessToken(identity)
		if err != nil {
			return err
		}
		accessToken = token
		return nil
	})

	g.Go(func() error {
		token, expiresAt, err := s.tokens.SignRefreshToken(user.ID.String())
		if err != nil {
			return err
		}
		refreshToken = token
		refreshExpiry = expiresAt
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token pair")
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		sessions := s.repo.RefreshSessions()

		if predecessor != nil {
			claimed, err := sessions.RevokeTx(ctx, tx, *predecessor)
			if err != nil {
				return err
			}
			if !claimed {
				return ErrUnauthorized
			}
		}

		if _, err := sessions.CreateTx(ctx, tx, user.ID, refreshToken, refreshExpiry); err != nil {
			return err
		}

		return sessions.PruneToLimitTx(ctx, tx, user.ID, s.maxSessions)
	})
	if err != nil {
		if IsUnauthorized(err) {
			return nil, ErrUnauthorized
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refresh session")
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Auther) emitLoginFailure(ctx context.Context, email, origin string, cause error) {
	s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
		"email":  email,
		"origin": origin,
		"error":  cause.Error(),
	})
}

func (s *Auther) emitRefreshFailure(ctx context.Context, subject string, cause error) {
	s.emitAuthEvent(ctx, ActivityEventRefreshFailure, ActorRef{Type: "unknown"}, subject, map[string]any{
		"error": cause.Error(),
	})
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}

type userIdentity struct {
	user *User
}

func (i userIdentity) ID() string {
	return i.user.ID.String()
}

func (i userIdentity) Email() string {
	return i.user.Email
}

func (i userIdentity) Role() string {
	return string(i.user.Role)
}

var _ Identity = userIdentity{}
