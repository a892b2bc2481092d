package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"

	"github.com/akimov/peerwallet/internal/core/handler"
	"github.com/akimov/peerwallet/internal/core/logger"
	middlWre "github.com/akimov/peerwallet/internal/core/middleware"
	"github.com/akimov/peerwallet/internal/core/repository/postgres"
	"github.com/akimov/peerwallet/internal/core/usecase"
	"github.com/akimov/peerwallet/pkg/config"
	"github.com/akimov/peerwallet/pkg/postgresdb"
)

type Server struct {
	router     *mux.Router
	log        logger.Logger
	cfg        *config.Config
	httpServer *http.Server
	db         *postgresdb.Database

	authHandler        *handler.AuthHandler
	transferHandler    *handler.TransferHandler
	transactionHandler *handler.TransactionHandler
}

func NewServer(log logger.Logger) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := postgresdb.NewPostgresDB(cfg.DB, log)
	if err != nil {
		return nil, err
	}

	txRunner := postgres.NewTxRunner(db.DB, log, cfg.LockWait)
	walletRepo := postgres.NewPostgresWalletRepo(db.DB, log)
	transactionRepo := postgres.NewPostgresTransactionRepo(db.DB, log)
	userRepo := postgres.NewPostgresUserRepo(db.DB, log)

	transferUsecase := usecase.NewTransferUsecase(txRunner, walletRepo, transactionRepo, userRepo, log)
	historyUsecase := usecase.NewHistoryUsecase(transactionRepo, log)
	authUsecase := usecase.NewAuthUsecase(txRunner, userRepo, walletRepo, log, cfg.JWTSecret, cfg.TokenTTL)

	server := &Server{
		log:                log,
		cfg:                cfg,
		router:             mux.NewRouter(),
		db:                 db,
		authHandler:        handler.NewAuthHandler(authUsecase, log),
		transferHandler:    handler.NewTransferHandler(transferUsecase, log),
		transactionHandler: handler.NewTransactionHandler(historyUsecase, walletRepo, log),
	}

	server.router.Use(loggingMiddleware(server.log))

	mw := middleware.New(middleware.Config{
		Recorder: prometheus.NewRecorder(prometheus.Config{}),
	})

	server.router.Use(func(next http.Handler) http.Handler {
		return std.Handler("", mw, next)
	})

	server.RegisterRoutes()

	return server, nil
}

func (s *Server) RegisterRoutes() {
	s.router.Use(
		middlWre.WithErrorHandler(s.log),
		middlWre.Recovery(s.log),
	)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", s.authHandler.Register).Methods("POST")
	api.HandleFunc("/login", s.authHandler.Login).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(middlWre.Auth(s.cfg.JWTSecret, s.log))
	protected.HandleFunc("/transfers", s.transferHandler.Store).Methods("POST")
	protected.HandleFunc("/transactions", s.transactionHandler.Index).Methods("GET")
	protected.HandleFunc("/transactions/{uuid}", s.transactionHandler.Show).Methods("GET")

	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
}

func (s *Server) Addr() string {
	return s.cfg.HTTPAddr
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      12 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 60 * time.Second,
	}

	s.httpServer = srv

	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	var shutdownErr error

	go func() {
		if s.httpServer != nil {
			err := s.httpServer.Shutdown(ctx)
			if err != nil {
				s.log.Error("failed to shutdown HTTP server", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			}
		}

		if s.db != nil {
			err := s.db.Close()
			if err != nil {
				s.log.Error("failed to close database connection", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("database shutdown error: %w", err)
			}
		}

		close(done)
	}()

	select {
	case <-done:
		return shutdownErr
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (s *Server) RunTLS(certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      9 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 6 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	s.httpServer = srv
	return srv.ListenAndServeTLS(certFile, keyFile)
}

func loggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info("HTTP request",
				logger.StringField("method", r.Method),
				logger.StringField("path", r.URL.Path),
				logger.StringField("remote_addr", r.RemoteAddr),
				logger.StringField("user_agent", r.UserAgent()),
			)
			next.ServeHTTP(w, r)
		})
	}
}
