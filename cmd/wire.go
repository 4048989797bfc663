package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/carlmn/rentsync/internal/adapters/credfile"
	"github.com/carlmn/rentsync/internal/adapters/market"
	"github.com/carlmn/rentsync/internal/adapters/rental"
	"github.com/carlmn/rentsync/internal/application"
	"github.com/carlmn/rentsync/internal/ports"
)

const (
	configName = "rentsync"
	configType = "toml"
	configDir  = ".rentsync"
	envPrefix  = "RENTSYNC"
)

type app struct {
	reconciler *application.Reconciler
	log        zerolog.Logger
}

func wireApp() (*app, error) {
	cfg, err := loadConfig(viper.New())
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	httpClient := &http.Client{}

	rentalClient := rental.NewClient(cfg.GetString("rental.url"), httpClient)
	marketClient := market.NewClient(
		cfg.GetString("marketplace.url"),
		cfg.GetString("marketplace.username"),
		cfg.GetString("marketplace.password"),
		httpClient,
	)
	credSource := credfile.NewSource(cfg.GetString("credentials.path"))

	reconciler := application.NewReconciler(
		rentalClient,
		marketClient,
		credSource,
		ports.SystemClock{},
		logger,
		application.Config{
			AdminUsername:      cfg.GetString("rental.username"),
			BootstrapGrace:     cfg.GetDuration("bootstrap.grace"),
			OrderPollInterval:  cfg.GetDuration("intervals.orders"),
			HealthPollInterval: cfg.GetDuration("intervals.health"),
			StalenessThreshold: cfg.GetDuration("thresholds.staleness"),
			ExpirationGrace:    cfg.GetDuration("thresholds.expirationGrace"),
			FeePercent:         cfg.GetInt64("fees.percent"),
		},
	)

	return &app{reconciler: reconciler, log: logger}, nil
}

func loadConfig(cfg *viper.Viper) (*viper.Viper, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(".")
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	cfg.AddConfigPath("/etc/rentsync")
	cfg.SetEnvPrefix(envPrefix)
	cfg.AutomaticEnv()

	cfg.SetDefault("rental.url", "http://localhost:3000")
	cfg.SetDefault("rental.username", "admin")
	cfg.SetDefault("marketplace.url", "http://localhost:4002")
	cfg.SetDefault("marketplace.username", "")
	cfg.SetDefault("marketplace.password", "")
	cfg.SetDefault("credentials.path", filepath.Join(homeDir, configDir, "credentials.json"))
	cfg.SetDefault("bootstrap.grace", 10*time.Second)
	cfg.SetDefault("intervals.orders", 2*time.Minute)
	cfg.SetDefault("intervals.health", 5*time.Minute)
	cfg.SetDefault("thresholds.staleness", 10*time.Minute)
	cfg.SetDefault("thresholds.expirationGrace", 5*time.Minute)
	cfg.SetDefault("fees.percent", 10)
	cfg.SetDefault("log.level", "info")

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return cfg, nil
}
