package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/khagerman/Nostalgia-Machine-backend/auth"
	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

type Server struct {
	config      *models.Config
	router      *http.ServeMux
	httpServer  *http.Server
	handler     *Handler
	tokens      *auth.TokenCodec
	rateLimiter *RateLimiter
	serviceOFF  atomic.Bool
}

// NewServer wires the routes. rateLimiter may be nil.
func NewServer(handler *Handler, tokens *auth.TokenCodec, rateLimiter *RateLimiter, config *models.Config) *Server {
	server := &Server{
		router:      http.NewServeMux(),
		handler:     handler,
		tokens:      tokens,
		rateLimiter: rateLimiter,
		config:      config,
	}
	server.addRoutes()
	server.httpServer = &http.Server{
		Addr:              net.JoinHostPort(config.Server.Host, config.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server
}

// Handler is the router behind the middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	if s.rateLimiter != nil {
		handler = rateLimitMiddleware(handler, s.rateLimiter)
	}
	handler = authMiddleware(handler, s.tokens, s.rateLimiter)
	handler = corsMiddleware(handler, s.config.Server.AllowedOrigin)
	return loggingMiddleware(handler)
}

func (s *Server) start() error {
	log.Printf("Nostalgia Machine starting on %s:%s", s.config.Server.Host, s.config.Server.Port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) addRoutes() {
	h := s.handler
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"POST /auth/register", h.register},
		{"POST /auth/token", h.token},

		{"GET /decade", h.getDecades},
		{"GET /decade/{id}", h.getDecade},
		{"POST /decade", ensureLoggedIn(h.createDecade)},
		{"PATCH /decade/{id}", ensureLoggedIn(h.updateDecade)},
		{"DELETE /decade/{id}", ensureLoggedIn(h.deleteDecade)},

		{"GET /posts/{id}", h.getPost},
		{"POST /posts", ensureLoggedIn(h.createPost)},
		{"PATCH /posts/{id}", ensureLoggedIn(h.updatePost)},
		{"DELETE /posts/{id}", ensureLoggedIn(h.deletePost)},
		{"POST /posts/{id}/comments", ensureLoggedIn(h.createComment)},
		{"GET /posts/{id}/comments/{commentid}", h.getComment},
		{"PATCH /posts/{id}/comments/{commentid}", ensureLoggedIn(h.updateComment)},
		{"DELETE /posts/{id}/comments/{commentid}", ensureLoggedIn(h.deleteComment)},

		{"GET /users/{username}", ensureCorrectUser(h.getUser)},
		{"DELETE /users/{username}", ensureCorrectUser(h.deleteUser)},
		{"GET /users/{username}/favorite", ensureCorrectUser(h.getFavorites)},
		{"POST /users/{username}/favorite/{postId}", ensureCorrectUser(h.addFavorite)},
		{"DELETE /users/{username}/favorite/{postId}", ensureCorrectUser(h.removeFavorite)},

		{"GET /featured/new", h.featuredNew},
		{"GET /featured/loved", h.featuredLoved},
	}
	for _, route := range routes {
		s.router.HandleFunc(route.pattern, route.handler)
		log.Printf("Registered route: %s", route.pattern)
	}

	// Health check endpoint
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if s.serviceOFF.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// everything else, including known paths with an unknown method
	s.router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, status.Error(codes.NotFound, "Not Found"))
	})
}

// Close reports unhealthy, waits for the load balancer to notice, then
// drains in-flight requests.
func (s *Server) Close() {
	s.serviceOFF.Store(true)
	time.Sleep(s.config.Server.ShutdownDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Println("Error in Closing HttpServer gracefully: ", err.Error())
		return
	}
	log.Println("HttpServer Closed Successfully")
}
