// Package server is the composition root: it wires the repositories,
// calendar integration, services, and handlers into a chi router, and owns
// startup and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/internmatch/internal/calendar"
	"github.com/sakif/internmatch/internal/handler"
	"github.com/sakif/internmatch/internal/middleware"
	sqliteRepo "github.com/sakif/internmatch/internal/repository/sqlite"
	"github.com/sakif/internmatch/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port   int
	DBPath string

	// StateSecret signs the OAuth state parameter. Required for the
	// connect flow; the server still starts without it and the calendar
	// routes report a configuration error.
	StateSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// PublicBaseURL is the externally reachable base of this server, used
	// to build connect-flow URLs embedded in interview records.
	PublicBaseURL string

	// ConnectSuccessURL is where the browser lands after the OAuth
	// callback completes. Optional; the callback answers with JSON when
	// unset.
	ConnectSuccessURL string
}

// Server owns the router and the database handle.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
// sqlite.DB -> calendar provider/factory/provisioner -> services -> handlers.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	provider := calendar.NewGoogleProvider(
		s.config.GoogleClientID,
		s.config.GoogleClientSecret,
		s.config.GoogleCallbackURL,
	)

	// The signer rejects an absent or weak secret. The server still starts
	// so the scheduling API stays available; connect-flow routes surface
	// the configuration error instead.
	var states service.StateCodec
	signer, err := calendar.NewStateSigner(s.config.StateSecret)
	if err != nil {
		s.logger.Warn("calendar connect flow not configured",
			slog.String("error", err.Error()),
		)
		states = unconfiguredStates{err: err}
	} else {
		states = signer
	}

	factory := calendar.NewClientFactory(provider, s.db, s.logger)
	provisioner := calendar.NewMeetProvisioner(factory, s.logger)

	connectURL := s.config.PublicBaseURL + "/auth/google/connect"

	connectionService := service.NewConnectionService(provider, states, s.db, s.db, s.logger)
	interviewService := service.NewInterviewService(
		s.db, s.db, s.db, s.db,
		provisioner, factory, connectURL, s.logger,
	)

	connectionHandler := handler.NewConnectionHandler(connectionService, s.config.ConnectSuccessURL, s.logger)
	interviewHandler := handler.NewInterviewHandler(interviewService, s.logger)

	s.router.Route("/auth/google", func(r chi.Router) {
		r.Get("/connect", connectionHandler.HandleConnect)
		r.Get("/callback", connectionHandler.HandleCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/interviews", interviewHandler.HandlePropose)
		r.Get("/interviews", interviewHandler.HandleList)
		r.Post("/interviews/{id}/select", interviewHandler.HandleSelectSlot)
		r.Post("/interviews/{id}/reschedule", interviewHandler.HandleReschedule)
		r.Post("/interviews/{id}/missed", interviewHandler.HandleMarkMissed)
		r.Get("/employers/{id}/calendar", connectionHandler.HandleStatus)
	})

	return nil
}

// unconfiguredStates stands in for the state signer when no secret is set,
// so every connect attempt reports the configuration error.
type unconfiguredStates struct {
	err error
}

func (u unconfiguredStates) Sign(string) (string, error)   { return "", u.err }
func (u unconfiguredStates) Verify(string) (string, error) { return "", u.err }

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
