package adaptor

import (
	"net/http"
	"time"

	"eventhub/internal/usecase"
	"eventhub/pkg/utils"
)

type sessionCookies struct {
	name   string
	secure bool
}

func newSessionCookies(config *utils.Config) sessionCookies {
	return sessionCookies{
		name:   config.Session.CookieName,
		secure: config.App.IsProduction(),
	}
}

func (c sessionCookies) set(w http.ResponseWriter, issued *usecase.IssuedSession, now time.Time) {
	maxAge := int(issued.ExpiresAt.Sub(now).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    issued.Token,
		Path:     "/",
		Expires:  issued.ExpiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c sessionCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
