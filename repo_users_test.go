package authn_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/goliatone/go-repository-bun"
	authn "github.com/helioslabs/go-authn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"User@Example.COM", "user@example.com"},
		{"  padded@example.com ", "padded@example.com"},
		{"already@example.com", "already@example.com"},
		{" MIXED@Case.Org\t", "mixed@case.org"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, authn.NormalizeEmail(tt.in))
	}
}

func TestUsersRegisterDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := authn.NewRepositoryManager(db, fastHasher())
	ctx := context.Background()

	user, err := repo.Users().Register(ctx, &authn.User{
		Email:        "  Defaulted@Example.com ",
		PasswordHash: "$argon2id$placeholder",
	})
	require.NoError(t, err)

	assert.Equal(t, "defaulted@example.com", user.Email)
	assert.Equal(t, authn.RoleUser, user.Role)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", user.ID.String())
}

func TestUsersGetByEmailNormalizes(t *testing.T) {
	db := setupTestDB(t)
	repo := authn.NewRepositoryManager(db, fastHasher())
	ctx := context.Background()

	_, err := repo.Users().Register(ctx, &authn.User{
		Email:        "lookup@example.com",
		PasswordHash: "$argon2id$placeholder",
		Role:         authn.RoleUser,
	})
	require.NoError(t, err)

	user, err := repo.Users().GetByEmail(ctx, "  Lookup@EXAMPLE.com ")
	require.NoError(t, err)
	assert.Equal(t, "lookup@example.com", user.Email)
}

func TestUsersGetByEmailNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := authn.NewRepositoryManager(db, fastHasher())

	_, err := repo.Users().GetByEmail(context.Background(), "missing@example.com")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersGetUserByID(t *testing.T) {
	db := setupTestDB(t)
	repo := authn.NewRepositoryManager(db, fastHasher())
	ctx := context.Background()

	created, err := repo.Users().Register(ctx, &authn.User{
		Email:        "byid@example.com",
		PasswordHash: "$argon2id$placeholder",
	})
	require.NoError(t, err)

	user, err := repo.Users().GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, user.Email)

	_, err = repo.Users().GetUserByID(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestDeterministicUserIDs(t *testing.T) {
	dbA := setupTestDB(t)
	dbB := setupTestDB(t)

	repoA := authn.NewRepositoryManager(dbA, fastHasher(),
		authn.WithUsers(authn.NewUsersRepository(dbA, authn.WithDeterministicIDs())))
	repoB := authn.NewRepositoryManager(dbB, fastHasher(),
		authn.WithUsers(authn.NewUsersRepository(dbB, authn.WithDeterministicIDs())))

	ctx := context.Background()

	userA, err := repoA.Users().Register(ctx, &authn.User{
		Email:        "stable@example.com",
		PasswordHash: "$argon2id$placeholder",
	})
	require.NoError(t, err)

	userB, err := repoB.Users().Register(ctx, &authn.User{
		Email:        "stable@example.com",
		PasswordHash: "$argon2id$placeholder",
	})
	require.NoError(t, err)

	assert.Equal(t, userA.ID, userB.ID, "same email derives the same id")
}
