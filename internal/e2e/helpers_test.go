package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/passgate/internal/handlers"
)

type response struct {
	Status  int
	Body    string
	Cookies []*http.Cookie
}

func (r response) message(t *testing.T) string {
	t.Helper()

	var body struct {
		Message string `json:"message"`
	}
	require.NoErrorf(t, json.Unmarshal([]byte(r.Body), &body), "Body: %s", r.Body)
	return body.Message
}

func do(t *testing.T, client *http.Client, method string, url string, body string) response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(t, err, "request should always complete")
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	return response{Status: resp.StatusCode, Body: string(data), Cookies: resp.Cookies()}
}

// Cookie value the client keeps for the gateway
func cookie(t *testing.T, env Env, client *http.Client, name string) string {
	t.Helper()

	u, err := url.Parse(env.URL)
	require.NoError(t, err)

	for _, c := range client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func register(t *testing.T, env Env, username string) {
	t.Helper()

	resp := do(t, env.Client, http.MethodPost, env.URL+"/auth/register",
		`{"name": "Nikita", "username": "`+username+`", "password": "StrongEnoughPassword"}`)
	require.Equalf(t, http.StatusCreated, resp.Status, "not expected code. Body: %s", resp.Body)
}

func login(t *testing.T, env Env, client *http.Client, username string) {
	t.Helper()

	resp := do(t, client, http.MethodPost, env.URL+"/auth/login",
		`{"username": "`+username+`", "password": "StrongEnoughPassword"}`)
	require.Equalf(t, http.StatusOK, resp.Status, "not expected code. Body: %s", resp.Body)
	require.NotEmpty(t, cookie(t, env, client, handlers.DefaultAccessCookieName))
}
