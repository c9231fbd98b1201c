package request

type IssueCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// CreateSessionRequest has two shapes: {userId, email} refreshes the
// caller's own session, {email, token} redeems an auto-login token.
type CreateSessionRequest struct {
	UserID string `json:"userId" validate:"required_without=Token"`
	Email  string `json:"email" validate:"required,email"`
	Token  string `json:"token" validate:"required_without=UserID"`
}

type PasswordLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AutoLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=12,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin organizer staff"`
}
