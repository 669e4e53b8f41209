package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// BearerAuth checks the Authorization: Bearer header against a set of
// static tokens.
type BearerAuth struct {
	tokens map[string]struct{}

	// OnReject writes the refusal. Defaults to a plain 401.
	OnReject func(w http.ResponseWriter, r *http.Request, reason string)
}

// NewBearerAuth creates an authenticator. Empty tokens are ignored.
func NewBearerAuth(tokens []string) *BearerAuth {
	a := &BearerAuth{tokens: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			a.tokens[t] = struct{}{}
		}
	}
	return a
}

// Enabled reports whether at least one token is configured.
func (a *BearerAuth) Enabled() bool {
	return len(a.tokens) > 0
}

// IsValid compares token against every configured token in constant time.
func (a *BearerAuth) IsValid(token string) bool {
	ok := false
	for t := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			ok = true
		}
	}
	return ok
}

// Middleware rejects requests without a valid token. It passes everything
// through when no token is configured.
func (a *BearerAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		switch {
		case !found || token == "":
			a.reject(w, r, "missing bearer token")
			return
		case !a.IsValid(token):
			a.reject(w, r, "invalid bearer token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *BearerAuth) reject(w http.ResponseWriter, r *http.Request, reason string) {
	if a.OnReject != nil {
		a.OnReject(w, r, reason)
		return
	}
	http.Error(w, reason, http.StatusUnauthorized)
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY HEADERS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// SecurityHeadersMiddleware adds the usual API hardening headers.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST SIZE LIMIT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware refuses declared bodies over maxBytes and caps
// the bytes actually read. maxBytes <= 0 disables the limit.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// MiddlewareFunc is a function that wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain composes middlewares; the first one is outermost.
func Chain(middlewares ...MiddlewareFunc) MiddlewareFunc {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
