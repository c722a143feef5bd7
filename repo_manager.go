package authn

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes the persistence surface the orchestrator works
// against, plus transactional execution for refresh rotation.
type RepositoryManager interface {
	Users() Users
	RefreshSessions() RefreshSessions
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Validate() error
	MustValidate()
}

type mngr struct {
	db       *bun.DB
	users    Users
	sessions RefreshSessions
}

type ManagerOption func(*mngr)

// WithUsers overrides the users repository.
func WithUsers(users Users) ManagerOption {
	return func(m *mngr) {
		m.users = users
	}
}

// WithRefreshSessions overrides the refresh sessions store.
func WithRefreshSessions(sessions RefreshSessions) ManagerOption {
	return func(m *mngr) {
		m.sessions = sessions
	}
}

func NewRepositoryManager(db *bun.DB, hasher PasswordHasher, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:       db,
		users:    NewUsersRepository(db),
		sessions: NewRefreshSessionsStore(db, hasher),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) RefreshSessions() RefreshSessions {
	return m.sessions
}
