// Package www serves stored prices and outages as JSON and pushes every new
// outage snapshot to websocket clients.
package www

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/icodeforyou/malar-go/config"
	"github.com/icodeforyou/malar-go/types"
)

// Store is everything the API reads, *database.Database in production.
type Store interface {
	PriceStore
	OutageStore
	LogReader
}

type Server struct {
	logger *slog.Logger
	config config.AppConfigApi
	hub    *Hub
	router chi.Router
}

func NewServer(db Store, live CurrentPriceFetcher, config config.AppConfigApi) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger: logger,
		config: config,
		hub:    NewHub(logger.With(slog.String("component", "hub")), config.GetAllowedOrigins()),
		router: chi.NewRouter(),
	}

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr),
				slog.String("request_id", middleware.GetReqID(r.Context())))
			next.ServeHTTP(w, r)
		})
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(logReqMW)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: config.GetAllowedOrigins(),
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/prices/{sector}", NewPricesHandler(logger.With(slog.String("handler", "prices")), db))
		r.Get("/prices/{sector}/current", NewCurrentPriceHandler(logger.With(slog.String("handler", "current_price")), live, db))
		r.Get("/outages", NewOutagesHandler(logger.With(slog.String("handler", "outages")), db))
		r.Get("/outages/history", NewOutageHistoryHandler(logger.With(slog.String("handler", "outage_history")), db))
		r.Get("/log", NewLogHandler(logger.With(slog.String("handler", "log")), db))
		r.Get("/log/modules", NewLogModulesHandler(logger.With(slog.String("handler", "log_modules")), db))
	})

	s.router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		if !s.hub.register(client) {
			client.conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// BroadcastOutages pushes an outage snapshot to every websocket client.
func (s *Server) BroadcastOutages(outages []types.OutageRecord, updatedAt time.Time) {
	buf, err := json.Marshal(newOutagesResponse(outages, updatedAt))
	if err != nil {
		s.logger.Error("encoding outage snapshot failed", slog.Any("error", err))
		return
	}
	s.hub.Send(buf)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "port", s.config.Port)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Run(ctx)

	srvErrors := make(chan error, 1)
	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.Any("error", err))
		}

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown failed", slog.Any("error", err))
		}
	}
}
