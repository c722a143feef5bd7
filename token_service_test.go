package authn_test

import (
	"testing"
	"time"

	authn "github.com/helioslabs/go-authn"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testIdentity struct {
	id    string
	email string
	role  string
}

func (i testIdentity) ID() string    { return i.id }
func (i testIdentity) Email() string { return i.email }
func (i testIdentity) Role() string  { return i.role }

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())
	ts := authn.NewTokenService(cfg)

	identity := testIdentity{
		id:    uuid.NewString(),
		email: "user@example.com",
		role:  string(authn.RoleUser),
	}

	token, err := ts.SignAccessToken(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.VerifyAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, identity.id, claims.UserID())
	assert.Equal(t, identity.id, claims.Subject)
	assert.Equal(t, identity.email, claims.Email)
	assert.Equal(t, string(authn.RoleUser), claims.Role())
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.Expires(), 5*time.Second)
}

func TestRefreshTokenCarriesSubjectOnly(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())
	ts := authn.NewTokenService(cfg)

	subject := uuid.New()
	token, expiresAt, err := ts.SignRefreshToken(subject.String())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, 5*time.Second)

	claims, err := ts.VerifyRefreshToken(token)
	require.NoError(t, err)

	parsed, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, subject, parsed)
}

func TestVerifyExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = "-1s"
	require.NoError(t, cfg.Validate())
	ts := authn.NewTokenService(cfg)

	token, err := ts.SignAccessToken(testIdentity{id: "u1", email: "u@example.com", role: "USER"})
	require.NoError(t, err)

	_, err = ts.VerifyAccessToken(token)
	require.Error(t, err)
	assert.True(t, authn.IsTokenExpired(err))
}

func TestVerifyWithWrongSecret(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())
	ts := authn.NewTokenService(cfg)

	other := testConfig()
	other.AccessSecret = "a-different-secret"
	require.NoError(t, other.Validate())
	otherTS := authn.NewTokenService(other)

	token, err := ts.SignAccessToken(testIdentity{id: "u1", email: "u@example.com", role: "USER"})
	require.NoError(t, err)

	_, err = otherTS.VerifyAccessToken(token)
	require.Error(t, err)
	assert.True(t, authn.IsTokenMalformed(err))
}

func TestAccessAndRefreshSecretsAreIndependent(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())
	ts := authn.NewTokenService(cfg)

	access, err := ts.SignAccessToken(testIdentity{id: "u1", email: "u@example.com", role: "USER"})
	require.NoError(t, err)

	// an access token must never redeem as a refresh token
	_, err = ts.VerifyRefreshToken(access)
	assert.Error(t, err)
}

func TestVerifyGarbageToken(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())
	ts := authn.NewTokenService(cfg)

	_, err := ts.VerifyAccessToken("not.a.jwt")
	require.Error(t, err)
	assert.True(t, authn.IsTokenMalformed(err))
}

func TestRefreshTokensAreUniquePerIssue(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())
	ts := authn.NewTokenService(cfg)

	subject := uuid.NewString()
	first, _, err := ts.SignRefreshToken(subject)
	require.NoError(t, err)
	second, _, err := ts.SignRefreshToken(subject)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
