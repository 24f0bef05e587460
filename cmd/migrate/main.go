// Package main manages the player and encounter schema.
//
// Usage:
//
//	migrate [flags] up [n]
//	migrate [flags] down [n]
//	migrate [flags] version
//	migrate [flags] force <version>
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vnbattle/internal/config"
	"github.com/cory-johannsen/vnbattle/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	envFile := flag.String("env", ".env", "optional dotenv file with VNB_* overrides")
	source := flag.String("source", "file://migrations", "migration source URL")
	flag.Parse()

	_ = godotenv.Load(*envFile)

	// Only the database and logging sections are read; the battle rules are
	// not validated here.
	v := config.NewViper()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("reading config: %v", err)
	}
	var (
		dbCfg  config.DatabaseConfig
		logCfg config.LoggingConfig
	)
	if err := v.UnmarshalKey("database", &dbCfg); err != nil {
		log.Fatalf("parsing database config: %v", err)
	}
	if err := v.UnmarshalKey("logging", &logCfg); err != nil {
		log.Fatalf("parsing logging config: %v", err)
	}
	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	m, err := migrate.New(*source, dbCfg.DSN())
	if err != nil {
		logger.Fatal("creating migrator", zap.String("source", *source), zap.Error(err))
	}
	defer m.Close()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}
	if err := run(m, cmd, flag.Arg(1)); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema already current")
		} else {
			logger.Fatal("migration failed", zap.String("command", cmd), zap.Error(err))
		}
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Fatal("reading schema version", zap.Error(err))
	}
	logger.Info("migrate finished",
		zap.String("command", cmd),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func run(m *migrate.Migrate, cmd, arg string) error {
	n := 0
	if arg != "" {
		var err error
		if n, err = strconv.Atoi(arg); err != nil {
			return fmt.Errorf("%s: %q is not a number", cmd, arg)
		}
	}
	switch cmd {
	case "up":
		if n > 0 {
			return m.Steps(n)
		}
		return m.Up()
	case "down":
		if n > 0 {
			return m.Steps(-n)
		}
		return m.Down()
	case "force":
		if arg == "" {
			return errors.New("force requires a version")
		}
		return m.Force(n)
	case "version":
		return nil
	default:
		return fmt.Errorf("unknown command %q: want up, down, version or force", cmd)
	}
}
