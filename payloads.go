package authn

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// RegisterPayload is the input record for Register. Delivery layers decode
// into it and call Validate before invoking the orchestrator.
type RegisterPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// LoginPayload is the input record for Login. Origin is the caller's network
// address, used only for lockout keying.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Origin   string `json:"origin"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Origin, validation.Required),
	)
}

// RefreshPayload is the input record for Refresh.
type RefreshPayload struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}
