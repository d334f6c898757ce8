package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-transfer/cmd/httpserver"
	"github.com/go-petr/pet-transfer/internal/middleware"
	"github.com/go-petr/pet-transfer/pkg/configpkg"
	"github.com/go-petr/pet-transfer/pkg/dbpkg"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	if config.Environement != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer conn.Close()

	if err := dbpkg.Migrate(config.MigrationURL, config.DBSource); err != nil {
		logger.Fatal().Err(err).Msg("cannot migrate db")
	}

	server, err := httpserver.New(conn, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("cannot run server")
	}

	logger.Info().Msg("server stopped")
}
