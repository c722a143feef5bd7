package authn

import (
	goerrors "github.com/goliatone/go-errors"
)

// Error text codes surfaced to delivery layers so they can map failures to
// transport-specific responses without string matching.
const (
	TextCodeUserExists         = "USER_EXISTS"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccountInactive    = "ACCOUNT_INACTIVE"
	TextCodeAccountLocked      = "ACCOUNT_LOCKED"
	TextCodeUnauthorized       = "UNAUTHORIZED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeConfig             = "CONFIG_ERROR"
)

// ErrUserExists is returned by Register when the email is already taken.
var ErrUserExists = goerrors.New("user already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserExists)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// two cases are indistinguishable to a caller.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials)

// ErrAccountInactive is returned when the account exists but is disabled.
var ErrAccountInactive = goerrors.New("account is inactive", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive)

// ErrAccountLocked is returned while a lockout window is in effect.
var ErrAccountLocked = goerrors.New("account temporarily locked", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked)

// ErrUnauthorized covers malformed, expired, unknown, and replayed refresh
// tokens during Refresh.
var ErrUnauthorized = goerrors.New("unauthorized", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized)

// ErrTokenExpired signals a token that parsed correctly but is past its TTL.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed signals a token that failed signature or structural checks.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrSessionNotFound is returned when no valid refresh session matches a
// presented token.
var ErrSessionNotFound = goerrors.New("refresh session not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound)

// ErrNoEmptyString rejects empty password input before hashing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput)

func configError(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithTextCode(TextCodeConfig)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsUserExists reports whether err represents a duplicate registration.
func IsUserExists(err error) bool {
	return hasTextCode(err, TextCodeUserExists)
}

// IsInvalidCredentials reports whether err represents a credential failure.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, TextCodeInvalidCredentials)
}

// IsAccountInactive reports whether err represents an inactive account.
func IsAccountInactive(err error) bool {
	return hasTextCode(err, TextCodeAccountInactive)
}

// IsAccountLocked reports whether err represents an active lockout.
func IsAccountLocked(err error) bool {
	return hasTextCode(err, TextCodeAccountLocked)
}

// IsUnauthorized reports whether err represents a rejected refresh token.
func IsUnauthorized(err error) bool {
	return hasTextCode(err, TextCodeUnauthorized)
}

// IsTokenExpired reports whether err represents an expired token.
func IsTokenExpired(err error) bool {
	return hasTextCode(err, TextCodeTokenExpired)
}

// IsTokenMalformed reports whether err represents a malformed token.
func IsTokenMalformed(err error) bool {
	return hasTextCode(err, TextCodeTokenMalformed)
}

// IsSessionNotFound reports whether err represents a missing refresh session.
func IsSessionNotFound(err error) bool {
	return hasTextCode(err, TextCodeSessionNotFound)
}

// IsConfigError reports whether err represents a fatal configuration problem.
func IsConfigError(err error) bool {
	return hasTextCode(err, TextCodeConfig)
}
