package httpapi

import (
	"net/http"
	"strings"
	"time"

	datatable "github.com/goliatone/go-datatable/components/datatable"
)

// DefaultCookieName carries the session token.
const DefaultCookieName = "authToken"

// TokenFromHeaders extracts the session token from the Cookie header or a
// bearer Authorization header.
func TokenFromHeaders(cookieHeader, authorization, cookieName string) string {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if cookieHeader != "" {
		if cookies, err := http.ParseCookie(cookieHeader); err == nil {
			for _, c := range cookies {
				if c.Name == cookieName && c.Value != "" {
					return c.Value
				}
			}
		}
	}
	if token, ok := strings.CutPrefix(strings.TrimSpace(authorization), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// SessionCookie builds the Set-Cookie value for a session; a zero session
// clears it.
func SessionCookie(name, path string, session *datatable.Session) *http.Cookie {
	if name == "" {
		name = DefaultCookieName
	}
	if path == "" {
		path = "/"
	}
	cookie := &http.Cookie{
		Name:     name,
		Path:     path,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if session == nil || session.Token == "" {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		return cookie
	}
	cookie.Value = session.Token
	cookie.Expires = session.ExpiresAt
	return cookie
}

// ViewerFor derives the viewer context of a session.
func ViewerFor(session datatable.Session, locale string) datatable.ViewerContext {
	return datatable.ViewerContext{
		SessionID: session.Token,
		UserID:    session.User.Email,
		Locale:    locale,
	}
}

// InferLocale picks the locale from an explicit query value or the first
// Accept-Language entry.
func InferLocale(query, acceptLanguage string) string {
	if locale := strings.TrimSpace(query); locale != "" {
		return strings.ToLower(locale)
	}
	for _, token := range strings.Split(acceptLanguage, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" && token != "*" {
			return strings.ToLower(token)
		}
	}
	return ""
}

// GuardPath strips the mount point so guard prefixes stay relative.
func GuardPath(basePath, path string) string {
	basePath = strings.TrimSuffix(basePath, "/")
	if basePath == "" {
		return path
	}
	if path == basePath {
		return "/"
	}
	if rest, ok := strings.CutPrefix(path, basePath+"/"); ok {
		return "/" + rest
	}
	return path
}
