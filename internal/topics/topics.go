// Package topics lists request topics served over the bus
package topics

// Session topics served by authsvc
const (
	AuthRegister     = "auth_register"
	AuthLogin        = "auth_login"
	AuthRefreshToken = "auth_refresh_token"
	ValidateToken    = "validate_token"
)

// User directory topics served by usersvc
const (
	UserCreate        = "user_create"
	UserFindAll       = "user_find_all"
	UserFindOne       = "user_find_one"
	UserUpdate        = "user_update"
	UserDelete        = "user_delete"
	UserValidateLogin = "user_validate_login"
)

// Gateway talks to both services
var Gateway = []string{
	AuthRegister, AuthLogin, AuthRefreshToken, ValidateToken,
	UserCreate, UserFindAll, UserFindOne, UserUpdate, UserDelete,
}

// Auth service uses user service as its user directory
var AuthDirectory = []string{UserCreate, UserFindOne, UserValidateLogin}
