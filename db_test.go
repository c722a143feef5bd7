package authn_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	authn "github.com/helioslabs/go-authn"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, authn.CreateSchema(context.Background(), db))

	t.Cleanup(func() { db.Close() })

	return db
}

// fastArgon2Params keeps hashing cheap in tests while exercising the real
// code path.
func fastArgon2Params() authn.Argon2Params {
	return authn.Argon2Params{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func fastHasher() *authn.Argon2Hasher {
	return authn.NewArgon2Hasher(authn.WithArgon2Params(fastArgon2Params()))
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type capturingSink struct {
	mu     sync.Mutex
	events []authn.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt authn.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) byType(eventType authn.ActivityEventType) []authn.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []authn.ActivityEvent
	for _, evt := range c.events {
		if evt.EventType == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func testConfig() *authn.Config {
	return &authn.Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     "15m",
		RefreshTTL:    "7d",
	}
}

type testStack struct {
	db     *bun.DB
	cfg    *authn.Config
	clock  *fakeClock
	repo   authn.RepositoryManager
	guard  *authn.LockoutGuard
	tokens *authn.TokenService
	sink   *capturingSink
	auther *authn.Auther
}

func newTestStack(t *testing.T, mutate ...func(*authn.Config)) *testStack {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}
	require.NoError(t, cfg.Validate())

	db := setupTestDB(t)
	hasher := fastHasher()
	clock := newFakeClock()
	sink := &capturingSink{}

	guard := authn.NewLockoutGuard(db, cfg,
		authn.WithLockoutClock(clock.Now),
		authn.WithLockoutActivitySink(sink),
	)
	repo := authn.NewRepositoryManager(db, hasher)
	tokens := authn.NewTokenService(cfg)

	auther := authn.NewAuthenticator(repo, guard, tokens, cfg).
		WithPasswordHasher(hasher).
		WithActivitySink(sink)

	return &testStack{
		db:     db,
		cfg:    cfg,
		clock:  clock,
		repo:   repo,
		guard:  guard,
		tokens: tokens,
		sink:   sink,
		auther: auther,
	}
}
