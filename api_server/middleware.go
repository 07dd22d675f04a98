package main

import (
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/khagerman/Nostalgia-Machine-backend/auth"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := ulid.Make().String()
		w.Header().Set("X-Request-ID", requestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Printf("Request: %s %s %d %v [%s]", r.Method, r.URL.Path, rec.status, time.Since(start), requestID)
	})
}

func corsMiddleware(next http.Handler, allowedOrigin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)

		// preflight
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken returns the token of an Authorization header, or "" when
// the header is absent.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", nil
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("malformed Authorization header")
	}
	return strings.TrimSpace(token), nil
}

// authMiddleware stores the verified caller on the request context. A
// request without a token stays anonymous; a request with a bad one is
// turned away, after being charged to its address when rl is set.
func authMiddleware(next http.Handler, tokens *auth.TokenCodec, rl *RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reject := func() {
			if rl != nil && !rl.admit(w, r, "ip:"+clientIP(r), "ip") {
				return
			}
			writeError(w, r, status.Error(codes.Unauthenticated, "Invalid Authorization Token"))
		}
		token, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			reject()
			return
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		username, err := tokens.Verify(token)
		if err != nil {
			log.Printf("Rejected token on %s %s: %v", r.Method, r.URL.Path, err)
			reject()
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), username)))
	})
}

func ensureLoggedIn(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := auth.RequireCaller(auth.CallerFrom(r.Context())); err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r)
	}
}

// ensureCorrectUser admits only the user named in the path. It runs before
// any store access.
func ensureCorrectUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := auth.Authorize(auth.CallerFrom(r.Context()), r.PathValue("username")); err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// admit charges key under the named rule and writes a 429 when the bucket
// is empty. Unknown rules admit everything.
func (rl *RateLimiter) admit(w http.ResponseWriter, r *http.Request, key, ruleName string) bool {
	rule, ok := rl.rules[ruleName]
	if !ok {
		return true
	}
	allowed, err := rl.Allow(r.Context(), key, rule)
	if err != nil {
		log.Printf("Rate limiter error: %v", err)
	}
	if !allowed {
		writeError(w, r, status.Error(codes.ResourceExhausted, "Rate limit exceeded"))
	}
	return allowed
}

// rateLimitMiddleware charges logged-in callers by username under the
// "user" rule and everyone else by address under the "ip" rule.
func rateLimitMiddleware(next http.Handler, rl *RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ruleName := "ip:"+clientIP(r), "ip"
		if caller := auth.CallerFrom(r.Context()); caller != "" {
			key, ruleName = "user:"+caller, "user"
		}
		if rl.admit(w, r, key, ruleName) {
			next.ServeHTTP(w, r)
		}
	})
}
