// Package httpserver manages server creation and api routing.
package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-transfer/internal/accountdelivery"
	"github.com/go-petr/pet-transfer/internal/accountrepo"
	"github.com/go-petr/pet-transfer/internal/accountservice"
	"github.com/go-petr/pet-transfer/internal/middleware"
	"github.com/go-petr/pet-transfer/internal/transferdelivery"
	"github.com/go-petr/pet-transfer/internal/transferrepo"
	"github.com/go-petr/pet-transfer/internal/transferservice"
	"github.com/go-petr/pet-transfer/internal/userdelivery"
	"github.com/go-petr/pet-transfer/internal/userrepo"
	"github.com/go-petr/pet-transfer/internal/userservice"
	"github.com/go-petr/pet-transfer/pkg/configpkg"
	"github.com/go-petr/pet-transfer/pkg/moneypkg"
	"github.com/go-petr/pet-transfer/pkg/tokenpkg"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests after its context is done.
const ShutdownTimeout = 10 * time.Second

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
	logger zerolog.Logger
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	tokenMaker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	userRepo := userrepo.NewRepoPGS(conn)
	accountRepo := accountrepo.NewRepoPGS(conn)
	transferRepo := transferrepo.NewRepoPGS(conn, transferrepo.WithMaxRetries(config.TransferMaxRetries))

	userService := userservice.New(userRepo)
	accountService := accountservice.New(accountRepo)
	transferService := transferservice.New(transferRepo, accountService,
		transferservice.WithTimeout(config.TransferTimeout))

	userHandler := userdelivery.NewHandler(userService, tokenMaker, config.AccessTokenDuration)
	accountHandler := accountdelivery.NewHandler(accountService)
	transferHandler := transferdelivery.NewHandler(transferService)

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.PrometheusMiddleware())

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.POST("/users/login", userHandler.Login)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/accounts/me", accountHandler.Me)
	authRoutes.GET("/accounts/:number", accountHandler.GetByNumber)

	authRoutes.POST("/transactions/transfer", transferHandler.Create)
	authRoutes.GET("/transactions/history/:id", transferHandler.History)

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
		logger: logger,
	}

	return server, nil
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}

	if err := v.RegisterValidation("amount", moneypkg.ValidAmount); err != nil {
		return fmt.Errorf("cannot register amount validator: %w", err)
	}

	if err := v.RegisterValidation("accountnumber", accountdelivery.ValidAccountNumber); err != nil {
		return fmt.Errorf("cannot register account number validator: %w", err)
	}

	return nil
}

// Run serves http requests on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Config.ServerAddress,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("address", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server forced to shutdown: %w", err)
	}

	return nil
}
