package http

import (
	"net/http"
	"time"
)

// Cookie names.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieConfig holds the attributes of the session cookies.
type CookieConfig struct {
	// Secure marks cookies HTTPS-only. Set in production.
	Secure bool

	// AccessTokenTTL is the Max-Age of the access token cookie.
	AccessTokenTTL time.Duration
}

func (c CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// setAccessCookie stores the access token in an HttpOnly cookie.
func (c CookieConfig) setAccessCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, token, int(c.AccessTokenTTL.Seconds())))
}

// clearSessionCookies expires both session cookies. The refresh token cookie
// is never set by login but is cleared all the same.
func (c CookieConfig) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, "", -1))
}
