// The loba relay daemon bridges Postgres row-change notifications onto the
// NATS bus so every client mirroring a session wakes up and re-reads.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lobascore/lobascore/go/internal/bus"
	"github.com/lobascore/lobascore/go/internal/dbconfig"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	config, err := loadConfig(getEnv("LOBA_CONFIG", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(config)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fail fast if the store is unreachable rather than LISTEN into the void.
	dbCfg := dbconfig.NewConfigFromEnv()
	pool, err := dbCfg.Connect(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	pool.Close()

	natsBus, err := bus.Connect(config.busConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to bus")
	}
	defer natsBus.Close()

	relay, err := bus.NewRelay(natsBus, config.relayConfig(dbCfg.DSN()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start relay")
	}

	if err := relay.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("relay stopped")
	}
}

func setupLogging(config *Config) {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", config.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if config.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
