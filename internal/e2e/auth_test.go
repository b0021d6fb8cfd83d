package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/passgate/internal/handlers"
	"github.com/nkiryanov/passgate/internal/models"
	"github.com/nkiryanov/passgate/internal/testutil"
)

func Test_Auth(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("register ok", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			resp := do(t, env.Client, http.MethodPost, env.URL+"/auth/register",
				`{"name": "Nikita", "username": "nk", "password": "StrongEnoughPassword"}`)

			require.Equalf(t, http.StatusCreated, resp.Status, "not expected code. Body: %s", resp.Body)
			var user models.PublicUser
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &user))
			require.Equal(t, "nk", user.Username)
			require.Equal(t, "Nikita", user.Name)
			require.NotContains(t, resp.Body, "password", "password hash must never leave user service")
			require.Empty(t, resp.Cookies, "register doesn't login")
		})
	})

	t.Run("register existed user fails", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			register(t, env, "nk")

			resp := do(t, env.Client, http.MethodPost, env.URL+"/auth/register",
				`{"name": "Other", "username": "nk", "password": "StrongEnoughPassword"}`)

			require.Equal(t, http.StatusConflict, resp.Status)
			require.Equal(t, "User already exists", resp.message(t))
		})
	})

	t.Run("login with wrong password", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			register(t, env, "nk")

			resp := do(t, env.Client, http.MethodPost, env.URL+"/auth/login", `{"username": "nk", "password": "WrongPassword"}`)

			require.Equal(t, http.StatusUnauthorized, resp.Status)
			require.Equal(t, "Invalid credentials", resp.message(t))
			require.Empty(t, resp.Cookies)
		})
	})

	t.Run("login unknown user looks like wrong password", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			resp := do(t, env.Client, http.MethodPost, env.URL+"/auth/login", `{"username": "ghost", "password": "WrongPassword"}`)

			require.Equal(t, http.StatusUnauthorized, resp.Status)
			require.Equal(t, "Invalid credentials", resp.message(t))
		})
	})

	t.Run("session lifecycle", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			register(t, env, "nk")
			login(t, env, env.Client, "nk")

			resp := do(t, env.Client, http.MethodGet, env.URL+"/auth/profile", "")
			require.Equalf(t, http.StatusOK, resp.Status, "not expected code. Body: %s", resp.Body)
			require.Contains(t, resp.Body, `"username":"nk"`)

			// Access token expires, refresh one is still valid
			env.Clock.Advance(AccessTTL + 1)
			firstRefresh := cookie(t, env, env.Client, handlers.DefaultRefreshCookieName)

			resp = do(t, env.Client, http.MethodGet, env.URL+"/auth/profile", "")
			require.Equal(t, http.StatusUnauthorized, resp.Status)
			require.Equal(t, "Token validation failed", resp.message(t))

			resp = do(t, env.Client, http.MethodPost, env.URL+"/auth/refresh-token", "")
			require.Equalf(t, http.StatusOK, resp.Status, "not expected code. Body: %s", resp.Body)
			require.NotEqual(t, firstRefresh, cookie(t, env, env.Client, handlers.DefaultRefreshCookieName), "refresh token should be rotated")

			resp = do(t, env.Client, http.MethodGet, env.URL+"/auth/profile", "")
			require.Equal(t, http.StatusOK, resp.Status, "new access token should be accepted")

			resp = do(t, env.Client, http.MethodPost, env.URL+"/auth/logout", "")
			require.Equal(t, http.StatusOK, resp.Status)
			require.Empty(t, cookie(t, env, env.Client, handlers.DefaultAccessCookieName), "cookies should be cleared")

			resp = do(t, env.Client, http.MethodGet, env.URL+"/auth/profile", "")
			require.Equal(t, http.StatusUnauthorized, resp.Status)
			require.Equal(t, "No token provided", resp.message(t))
		})
	})

	t.Run("refresh token expired", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			register(t, env, "nk")
			login(t, env, env.Client, "nk")

			env.Clock.Advance(RefreshTTL + 1)

			resp := do(t, env.Client, http.MethodPost, env.URL+"/auth/refresh-token", "")
			require.Equal(t, http.StatusUnauthorized, resp.Status)
			require.Equal(t, "Invalid refresh token", resp.message(t))
		})
	})

	t.Run("refresh twice without reuse detection", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			register(t, env, "nk")
			login(t, env, env.Client, "nk")
			refreshToken := cookie(t, env, env.Client, handlers.DefaultRefreshCookieName)

			for range 2 {
				client := env.NewClient(t)
				req, err := http.NewRequest(http.MethodPost, env.URL+"/auth/refresh-token", nil)
				require.NoError(t, err)
				req.AddCookie(&http.Cookie{Name: handlers.DefaultRefreshCookieName, Value: refreshToken})

				resp, err := client.Do(req)
				require.NoError(t, err)
				_ = resp.Body.Close()
				require.Equal(t, http.StatusOK, resp.StatusCode, "plain rotation accepts refresh token until it expires")
			}
		})
	})

	t.Run("refresh twice with reuse detection", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{ReuseDetection: true}, func(env Env) {
			register(t, env, "nk")
			login(t, env, env.Client, "nk")
			refreshToken := cookie(t, env, env.Client, handlers.DefaultRefreshCookieName)

			statuses := make([]int, 0, 2)
			for range 2 {
				req, err := http.NewRequest(http.MethodPost, env.URL+"/auth/refresh-token", nil)
				require.NoError(t, err)
				req.AddCookie(&http.Cookie{Name: handlers.DefaultRefreshCookieName, Value: refreshToken})

				resp, err := env.NewClient(t).Do(req)
				require.NoError(t, err)
				_ = resp.Body.Close()
				statuses = append(statuses, resp.StatusCode)
			}

			require.Equal(t, []int{http.StatusOK, http.StatusUnauthorized}, statuses)
		})
	})

	t.Run("bus is down", func(t *testing.T) {
		ServeWithTx(pg.Pool, t, Options{}, func(env Env) {
			register(t, env, "nk")
			login(t, env, env.Client, "nk")

			env.Bus.SetDown(true)
			defer env.Bus.SetDown(false)

			resp := do(t, env.Client, http.MethodGet, env.URL+"/user/all", "")
			require.Equal(t, http.StatusUnauthorized, resp.Status, "guard denies when token can't be validated")
			require.Equal(t, "Token validation failed", resp.message(t))

			resp = do(t, env.Client, http.MethodPost, env.URL+"/auth/login", `{"username": "nk", "password": "StrongEnoughPassword"}`)
			require.Equal(t, http.StatusServiceUnavailable, resp.Status)
			require.Equal(t, "Service unavailable", resp.message(t))

			resp = do(t, env.Client, http.MethodGet, env.URL+"/healthz", "")
			require.Equal(t, http.StatusOK, resp.Status, "gateway itself is alive")
		})
	})
}
