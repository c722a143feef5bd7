package authn

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// Argon2Params tunes the argon2id key derivation.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params follows the RFC 9106 low-memory recommendation.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2Hasher hashes passwords and refresh token values with argon2id. A
// weighted semaphore bounds how many derivations run at once so a burst of
// slow hashes cannot starve unrelated request handling.
type Argon2Hasher struct {
	params Argon2Params
	sem    *semaphore.Weighted
}

var _ PasswordHasher = (*Argon2Hasher)(nil)

type HasherOption func(*Argon2Hasher)

// WithArgon2Params overrides the derivation parameters.
func WithArgon2Params(params Argon2Params) HasherOption {
	return func(h *Argon2Hasher) {
		h.params = params
	}
}

// WithMaxConcurrentHashes caps in flight derivations.
func WithMaxConcurrentHashes(n int64) HasherOption {
	return func(h *Argon2Hasher) {
		if n > 0 {
			h.sem = semaphore.NewWeighted(n)
		}
	}
}

// NewArgon2Hasher returns a hasher with default parameters and a concurrency
// cap of twice the CPU count.
func NewArgon2Hasher(opts ...HasherOption) *Argon2Hasher {
	h := &Argon2Hasher{
		params: DefaultArgon2Params(),
		sem:    semaphore.NewWeighted(int64(2 * runtime.NumCPU())),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

// Hash derives an encoded argon2id hash from the plaintext.
func (h *Argon2Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrNoEmptyString
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "hashing cancelled")
	}
	defer h.sem.Release(1)

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate salt")
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// Verify re-derives the key from the parameters stored in the encoded hash
// and compares in constant time. A mismatch is (false, nil), an error means
// the encoded value could not be interpreted.
func (h *Argon2Hasher) Verify(ctx context.Context, encoded, plaintext string) (bool, error) {
	params, salt, key, err := decodeArgon2Hash(encoded)
	if err != nil {
		return false, err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryOperation, "hashing cancelled")
	}
	defer h.sem.Release(1)

	candidate := argon2.IDKey([]byte(plaintext), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(key)))

	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

func decodeArgon2Hash(encoded string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, goerrors.New("not an argon2id hash", goerrors.CategoryBadInput)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid argon2 version segment")
	}

	if version != argon2.Version {
		return params, nil, nil, goerrors.New("unsupported argon2 version", goerrors.CategoryBadInput)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid argon2 parameter segment")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid argon2 salt encoding")
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid argon2 key encoding")
	}

	return params, salt, key, nil
}
