package testutil

import (
	"net/http"
	"time"

	"plantpantry/pkg/requestcontext"
)

// WithSessionKey adds a session key to the request context, simulating the
// session middleware.
func WithSessionKey(req *http.Request, key string) *http.Request {
	return req.WithContext(requestcontext.WithSessionKey(req.Context(), key))
}

// WithRequestTime pins the request clock so time-dependent assertions are
// deterministic.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
