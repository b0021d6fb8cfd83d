package handlers

import (
	"net/http"
	"time"

	"github.com/nkiryanov/passgate/internal/models"
)

const (
	DefaultAccessCookieName  = "access_token"
	DefaultRefreshCookieName = "refresh_token"
)

// Cookies the gateway keeps tokens in
type Cookies struct {
	AccessName  string
	RefreshName string

	// Secure flag, turn off for plain http in development only
	Secure bool

	now func() time.Time
}

func NewCookies(accessName string, refreshName string, secure bool) Cookies {
	if accessName == "" {
		accessName = DefaultAccessCookieName
	}
	if refreshName == "" {
		refreshName = DefaultRefreshCookieName
	}

	return Cookies{AccessName: accessName, RefreshName: refreshName, Secure: secure, now: time.Now}
}

// Set both cookies, they live as long as their tokens
func (c Cookies) Set(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, c.cookie(c.AccessName, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, c.cookie(c.RefreshName, pair.RefreshToken, pair.RefreshExpiresAt))
}

// Clear expires both cookies
func (c Cookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{c.AccessName, c.RefreshName} {
		cookie := c.cookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (c Cookies) Access(r *http.Request) string {
	return c.value(r, c.AccessName)
}

func (c Cookies) Refresh(r *http.Request) string {
	return c.value(r, c.RefreshName)
}

func (c Cookies) value(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (c Cookies) cookie(name string, value string, expiresAt time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  expiresAt,
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	if maxAge := int(expiresAt.Sub(now()).Seconds()); maxAge > 0 {
		cookie.MaxAge = maxAge
	}

	return cookie
}
