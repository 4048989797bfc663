package application

import (
	"time"

	"github.com/carlmn/rentsync/internal/domain"
)

// Config carries the reconciler's timing and pricing knobs. The
// defaults match the production constants; tests shrink the durations.
type Config struct {
	// AdminUsername is the rental API account the bootstrapper logs in
	// as; its password comes from the credential source.
	AdminUsername string

	// BootstrapGrace is both the initial wait for the rental API to come
	// up and the delay between failed login attempts.
	BootstrapGrace time.Duration

	// OrderPollInterval drives the fulfillment loop.
	OrderPollInterval time.Duration
	// HealthPollInterval drives both health loops.
	HealthPollInterval time.Duration

	// StalenessThreshold is how long a device may go without checking in
	// before the health loops force-expire it.
	StalenessThreshold time.Duration
	// ExpirationGrace is the buffer past a device's expiration before
	// its listing is removed.
	ExpirationGrace time.Duration

	// RentalPreset is the duration bucket a fulfilled order buys.
	RentalPreset domain.Preset
	// FeePercent is the marketplace cut withheld from order payments.
	FeePercent int64
}

func DefaultConfig() Config {
	return Config{
		AdminUsername:      "admin",
		BootstrapGrace:     10 * time.Second,
		OrderPollInterval:  2 * time.Minute,
		HealthPollInterval: 5 * time.Minute,
		StalenessThreshold: 10 * time.Minute,
		ExpirationGrace:    5 * time.Minute,
		RentalPreset:       domain.PresetMonth,
		FeePercent:         domain.DefaultFeePercent,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()

	if c.AdminUsername == "" {
		c.AdminUsername = defaults.AdminUsername
	}
	if c.BootstrapGrace <= 0 {
		c.BootstrapGrace = defaults.BootstrapGrace
	}
	if c.OrderPollInterval <= 0 {
		c.OrderPollInterval = defaults.OrderPollInterval
	}
	if c.HealthPollInterval <= 0 {
		c.HealthPollInterval = defaults.HealthPollInterval
	}
	if c.StalenessThreshold <= 0 {
		c.StalenessThreshold = defaults.StalenessThreshold
	}
	if c.ExpirationGrace <= 0 {
		c.ExpirationGrace = defaults.ExpirationGrace
	}
	if c.RentalPreset == "" {
		c.RentalPreset = defaults.RentalPreset
	}
	if c.FeePercent <= 0 {
		c.FeePercent = defaults.FeePercent
	}

	return c
}
