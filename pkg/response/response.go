package response

import "github.com/dimaskp/conduit-api/internal/domain/entity"

// UserView is the public shape of a user. The password hash has no field here
// on purpose: it can never leak through this package.
type UserView struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
	Token    string `json:"token,omitempty"`
}

// UserEnvelope wraps a user view the way the API exposes it: {"user": {...}}.
type UserEnvelope struct {
	User UserView `json:"user"`
}

// ErrorEnvelope is the error body shape: {"errors": {"body": [...]}}.
type ErrorEnvelope struct {
	Errors ErrorBody `json:"errors"`
}

type ErrorBody struct {
	Body []string `json:"body"`
}

// NewUser builds the public view of u, optionally carrying a freshly issued token.
func NewUser(u *entity.User, token string) UserEnvelope {
	return UserEnvelope{User: UserView{
		Email:    u.Email,
		Username: u.Username,
		Bio:      u.Bio,
		Image:    u.Image,
		Token:    token,
	}}
}

// NewError builds an error envelope from one or more messages.
func NewError(msgs ...string) ErrorEnvelope {
	return ErrorEnvelope{Errors: ErrorBody{Body: msgs}}
}
