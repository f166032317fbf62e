package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionHeader carries the entropy session of a request.
const SessionHeader = "X-Session-ID"

// Session is middleware that copies the X-Session-ID header into the request
// context. Requests without the header get an empty session id.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		next.ServeHTTP(w, r.WithContext(SetSessionID(r.Context(), id)))
	})
}

// GetSessionID retrieves the session id from the request context.
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionContextKey).(string)
	return id
}

// SetSessionID adds a session id to the context.
func SetSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionContextKey, id)
}
