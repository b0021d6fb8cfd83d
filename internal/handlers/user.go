package handlers

import (
	"net/http"

	"github.com/nkiryanov/passgate/internal/handlers/render"
	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/messages"
)

func handleCreateUser(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[messages.CreateUserRequest](w, r)
		if err != nil {
			return
		}

		user, err := users.Create(r.Context(), data)
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSONWithStatus(w, user, http.StatusCreated)
	})
}

func handleListUsers(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		list, err := users.FindAll(r.Context())
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSON(w, list)
	})
}

func handleGetUser(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := users.FindOne(r.Context(), r.PathValue("id"))
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSON(w, user)
	})
}

func handleUpdateUser(users userService, l logger.Logger) http.Handler {
	type request struct {
		Name     *string `json:"name" validate:"omitnil,min=1,max=100"`
		Username *string `json:"username" validate:"omitnil,min=1,max=100"`
		Password *string `json:"password" validate:"omitnil,min=8,max=100"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := users.Update(r.Context(), messages.UpdateUserRequest{
			ID:       r.PathValue("id"),
			Name:     data.Name,
			Username: data.Username,
			Password: data.Password,
		})
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSON(w, user)
	})
}

func handleDeleteUser(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := users.Delete(r.Context(), r.PathValue("id"))
		if err != nil {
			renderError(w, r, err, l)
			return
		}

		render.JSON(w, user)
	})
}
