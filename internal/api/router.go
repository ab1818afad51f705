package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fightcore/internal/lobby"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// RouterConfig bundles the dependencies NewRouter needs. Constructing a
// router opens no listener, so it is safe to use directly with
// httptest.NewServer. It does append cfg.AllowedOrigins to the package-level
// AllowedOrigins, and when RateLimiter is nil it creates one, which starts
// that limiter's cleanup goroutine.
type RouterConfig struct {
	Lobby          *lobby.Lobby
	Hub            *WebSocketHub
	AllowedOrigins []string
	RateLimiter    *IPRateLimiter
	DisableLogging bool
}

// NewRouter constructs the HTTP router: lobby REST endpoints, the /ws
// upgrade endpoint, health, and metrics.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)
	}
	r.Use(rateLimiter.Middleware)

	origins := cfg.AllowedOrigins
	if origins == nil {
		origins = []string{"http://localhost:*"}
	}
	AllowedOrigins = append(AllowedOrigins, origins...)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ws", cfg.Hub.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", func(w http.ResponseWriter, req *http.Request) {
			rooms := cfg.Lobby.ListRooms()
			writeJSON(w, map[string]any{"rooms": rooms})
		})
	})

	return r
}
