package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/passgate/internal/models"
	"github.com/nkiryanov/passgate/internal/testutil"
)

func Test_Users(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("protected without login", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			for _, path := range []string{"/user/all", "/auth/profile"} {
				resp := do(t, env.Client, http.MethodGet, env.URL+path, "")

				require.Equal(t, http.StatusUnauthorized, resp.Status, path)
				require.Equal(t, "No token provided", resp.message(t))
			}
		})
	})

	t.Run("crud", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			register(t, env, "nk")
			login(t, env, env.Client, "nk")

			// Create
			resp := do(t, env.Client, http.MethodPost, env.URL+"/user/create",
				`{"name": "Other", "username": "other", "password": "StrongEnoughPassword"}`)
			require.Equalf(t, http.StatusCreated, resp.Status, "not expected code. Body: %s", resp.Body)
			var created models.PublicUser
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &created))

			// List
			resp = do(t, env.Client, http.MethodGet, env.URL+"/user/all", "")
			require.Equal(t, http.StatusOK, resp.Status)
			var all []models.PublicUser
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &all))
			require.Len(t, all, 2)

			// Update
			resp = do(t, env.Client, http.MethodPut, env.URL+"/user/"+created.ID.String(), `{"name": "Renamed"}`)
			require.Equalf(t, http.StatusOK, resp.Status, "not expected code. Body: %s", resp.Body)
			require.Contains(t, resp.Body, `"name":"Renamed"`)
			require.Contains(t, resp.Body, `"username":"other"`, "not sent fields kept")

			// Get
			resp = do(t, env.Client, http.MethodGet, env.URL+"/user/"+created.ID.String(), "")
			require.Equal(t, http.StatusOK, resp.Status)
			require.Contains(t, resp.Body, `"name":"Renamed"`)

			// Delete
			resp = do(t, env.Client, http.MethodDelete, env.URL+"/user/"+created.ID.String(), "")
			require.Equal(t, http.StatusOK, resp.Status)

			resp = do(t, env.Client, http.MethodGet, env.URL+"/user/"+created.ID.String(), "")
			require.Equal(t, http.StatusNotFound, resp.Status)
			require.Equal(t, "User not found", resp.message(t))
		})
	})

	t.Run("updated password used on login", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			register(t, env, "nk")
			login(t, env, env.Client, "nk")

			resp := do(t, env.Client, http.MethodGet, env.URL+"/auth/profile", "")
			require.Equal(t, http.StatusOK, resp.Status)
			var me models.PublicUser
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &me))

			resp = do(t, env.Client, http.MethodPut, env.URL+"/user/"+me.ID.String(), `{"password": "AnotherStrongPassword"}`)
			require.Equal(t, http.StatusOK, resp.Status)

			resp = do(t, env.NewClient(t), http.MethodPost, env.URL+"/auth/login", `{"username": "nk", "password": "StrongEnoughPassword"}`)
			require.Equal(t, http.StatusUnauthorized, resp.Status, "old password not accepted")

			resp = do(t, env.NewClient(t), http.MethodPost, env.URL+"/auth/login", `{"username": "nk", "password": "AnotherStrongPassword"}`)
			require.Equal(t, http.StatusOK, resp.Status)
		})
	})

	t.Run("invalid id", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			register(t, env, "nk")
			login(t, env, env.Client, "nk")

			resp := do(t, env.Client, http.MethodGet, env.URL+"/user/not-uuid", "")

			require.Equal(t, http.StatusBadRequest, resp.Status)
		})
	})
}
