package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"

	"github.com/protomem/census-registry/internal/census"
	"github.com/protomem/census-registry/internal/database"
	"github.com/protomem/census-registry/internal/env"
	"github.com/protomem/census-registry/internal/version"
)

var _cfgFile = flag.String("cfg", "", "path to config file")

func main() {
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

type config struct {
	httpHost string
	httpPort int
	db       struct {
		dsn         string
		automigrate bool
	}
	rules struct {
		rejectFutureBirthDate bool
		rejectSelfRelative    bool
	}
}

type application struct {
	config config
	census *census.Service
	logger *slog.Logger
	wg     sync.WaitGroup
}

func run(logger *slog.Logger) error {
	var cfg config

	if *_cfgFile != "" {
		err := env.Load(*_cfgFile)
		if err != nil {
			return err
		}
	}

	cfg.httpHost = env.GetString("HTTP_HOST", "localhost")
	cfg.httpPort = env.GetInt("HTTP_PORT", 8080)
	cfg.db.dsn = env.GetString("DB_DSN", "postgres:postgres@localhost:5432/postgres")
	cfg.db.automigrate = env.GetBool("DB_AUTOMIGRATE", true)
	cfg.rules.rejectFutureBirthDate = env.GetBool("IMPORT_REJECT_FUTURE_BIRTHDATE", true)
	cfg.rules.rejectSelfRelative = env.GetBool("IMPORT_REJECT_SELF_RELATIVE", true)

	showVersion := flag.Bool("version", false, "display version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	db, err := database.New(cfg.db.dsn, cfg.db.automigrate)
	if err != nil {
		return err
	}
	defer db.Close()

	storage := database.NewStorage(logger, db)
	censusService := census.New(logger, storage, census.Config{
		RejectFutureBirthDate: cfg.rules.rejectFutureBirthDate,
		RejectSelfRelative:    cfg.rules.rejectSelfRelative,
	})

	app := &application{
		config: cfg,
		census: censusService,
		logger: logger,
	}

	return app.serveHTTP()
}
