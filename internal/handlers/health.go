package handlers

import (
	"net/http"

	"github.com/nkiryanov/passgate/internal/handlers/render"
)

func handleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, map[string]string{"status": "ok"})
	})
}
