package handlers

import (
	"net/http"

	"github.com/nkiryanov/passgate/internal/apperrors"
	"github.com/nkiryanov/passgate/internal/handlers/render"
	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/messages"
	"github.com/nkiryanov/passgate/internal/tokencodec"
)

type messageResponse struct {
	Message string `json:"message"`
}

func handleRegister(sessions sessionService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[messages.RegisterRequest](w, r)
		if err != nil {
			return
		}

		user, err := sessions.Register(r.Context(), data)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSONWithStatus(w, user, http.StatusCreated)
	})
}

func handleLogin(sessions sessionService, cookies Cookies, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[messages.LoginRequest](w, r)
		if err != nil {
			return
		}

		pair, err := sessions.Login(r.Context(), data)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		cookies.Set(w, pair)
		render.JSON(w, messageResponse{Message: "Logged in successfully"})
	})
}

func handleRefreshToken(sessions sessionService, cookies Cookies, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh := cookies.Refresh(r)
		if refresh == "" {
			render.Error(w, r, apperrors.Unauthorized("No refresh token provided"))
			return
		}

		pair, err := sessions.Refresh(r.Context(), refresh)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		cookies.Set(w, pair)
		render.JSON(w, messageResponse{Message: "Token refreshed"})
	})
}

func handleLogout(cookies Cookies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies.Clear(w)
		render.JSON(w, messageResponse{Message: "Logged out successfully"})
	})
}

// Profile of the user the access token was issued to
// Guard has validated the token already, so the subject is trusted
func handleProfile(users userService, cookies Cookies, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := tokencodec.Subject(cookies.Access(r))
		if err != nil {
			render.Error(w, r, apperrors.Unauthorized(""))
			return
		}

		user, err := users.FindOne(r.Context(), subject)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSON(w, user)
	})
}

// Render error and log the ones caller can do nothing about
func renderError(w http.ResponseWriter, r *http.Request, err error, l logger.Logger) {
	appErr := apperrors.As(err)
	if appErr.Kind == apperrors.KindInternal || appErr.Kind == apperrors.KindTransport {
		l.Error("Request failed", "uri", r.RequestURI, "error", err)
	}

	render.Error(w, r, appErr)
}
