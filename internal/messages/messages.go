// Package messages holds request payloads sent over the bus
// Servers validate them with rpc.Bind, so validate tags are the contract
package messages

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Username string `json:"username" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ValidateTokenRequest struct {
	// Empty token is valid request that is answered with false
	Token string `json:"token"`
}

// Same payload for user_create
type CreateUserRequest = RegisterRequest

// Same payload for user_validate_login
type ValidateLoginRequest = LoginRequest

type UserIDRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

type UpdateUserRequest struct {
	ID       string  `json:"id" validate:"required,uuid"`
	Name     *string `json:"name,omitempty" validate:"omitnil,min=1,max=100"`
	Username *string `json:"username,omitempty" validate:"omitnil,min=1,max=100"`
	Password *string `json:"password,omitempty" validate:"omitnil,min=8,max=100"`
}

type FindAllRequest struct{}
