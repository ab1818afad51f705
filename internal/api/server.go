package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fightcore/internal/config"
	"fightcore/internal/lobby"
)

// Server is the HTTP+WebSocket entrypoint for one fightcore instance: a
// lobby, its WebSocket hub, and the router tying them together.
type Server struct {
	lobby  *lobby.Lobby
	hub    *WebSocketHub
	router *chi.Mux
	httpSrv *http.Server

	rateLimiter *IPRateLimiter
}

// NewServer constructs a Server bound to l. No listener is opened and the
// room-count reporter does not run until Start is called, matching the
// teacher's construct-then-Start split for testability; the IP rate
// limiter's cleanup goroutine starts here and is stopped by Shutdown.
func NewServer(l *lobby.Lobby, serverCfg config.ServerConfig) *Server {
	hub := NewWebSocketHub(l)
	rl := NewIPRateLimiter(DefaultRateLimitConfig)

	s := &Server{
		lobby:       l,
		hub:         hub,
		rateLimiter: rl,
	}
	s.router = NewRouter(RouterConfig{
		Lobby:          l,
		Hub:            hub,
		AllowedOrigins: serverCfg.AllowedOrigins,
		RateLimiter:    rl,
	})

	l.SetTickObserver(func(d time.Duration) {
		RecordTick(d)
		IncrementTranscriptTicks(1)
	})

	return s
}

// reportRoomsActive polls the lobby's room count into the Prometheus gauge
// until ctx is cancelled.
func (s *Server) reportRoomsActive(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			UpdateRoomsActive(len(s.lobby.ListRooms()))
		}
	}
}

// Router returns the HTTP handler, for use with httptest.NewServer.
func (s *Server) Router() http.Handler { return s.router }

// Start begins serving on addr and blocks until the context is cancelled
// or ListenAndServe returns a non-shutdown error.
func (s *Server) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("fightcore: listening on %s", addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()
	go s.reportRoomsActive(ctx)

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the HTTP server and the rate limiter's
// background cleanup goroutine.
func (s *Server) Shutdown() error {
	defer s.rateLimiter.Stop()
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}
