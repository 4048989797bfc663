package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carlmn/rentsync/internal/domain"
	"github.com/carlmn/rentsync/internal/ports"
)

// Reconciler keeps rented-device state consistent between the rental
// API and the marketplace. Three timer-driven loops share the stateless
// helper operations below; each tick builds its own cycle state, so the
// loops never interfere through shared mutable fields.
type Reconciler struct {
	rental ports.RentalAPI
	market ports.Marketplace
	creds  ports.CredentialSource
	clock  ports.Clock
	log    zerolog.Logger
	cfg    Config
}

func NewReconciler(rental ports.RentalAPI, market ports.Marketplace, creds ports.CredentialSource, clock ports.Clock, log zerolog.Logger, cfg Config) *Reconciler {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Reconciler{
		rental: rental,
		market: market,
		creds:  creds,
		clock:  clock,
		log:    log,
		cfg:    cfg.withDefaults(),
	}
}

// Run bootstraps the rental API session, then drives the three polling
// loops until ctx is cancelled. It never returns early on loop errors;
// every failure is logged and retried on the next tick.
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.Bootstrap(ctx); err != nil {
		return err
	}

	loops := []struct {
		name     string
		interval time.Duration
		tick     func(context.Context, zerolog.Logger) error
	}{
		{"orders", r.cfg.OrderPollInterval, r.fulfillTick},
		{"rented-health", r.cfg.HealthPollInterval, r.rentedHealthTick},
		{"listed-health", r.cfg.HealthPollInterval, r.listedHealthTick},
	}

	var wg sync.WaitGroup
	for _, loop := range loops {
		loop := loop
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runLoop(ctx, loop.name, loop.interval, loop.tick)
		}()
	}
	wg.Wait()

	return ctx.Err()
}

func (r *Reconciler) runLoop(ctx context.Context, name string, interval time.Duration, tick func(context.Context, zerolog.Logger) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.log.Info().Str("loop", name).Dur("interval", interval).Msg("loop started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Str("loop", name).Msg("loop stopped")
			return
		case <-ticker.C:
		}

		logger := r.log.With().Str("loop", name).Str("cycle", uuid.NewString()).Logger()
		if err := tick(ctx, logger); err != nil {
			logTickError(logger, err)
		}
	}
}

// logTickError maps the error taxonomy onto log levels. No error
// crashes the process; the loop simply waits for its next tick.
func logTickError(logger zerolog.Logger, err error) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		logger.Warn().Err(err).Msg("resource missing, tick aborted")
	case domain.KindServerError:
		logger.Warn().Err(err).Msg("remote unavailable, retrying next tick")
	case domain.KindValidation:
		logger.Debug().Err(err).Msg("skipping malformed input")
	default:
		logger.Error().Err(err).Msg("tick aborted")
	}
}

// sleepCtx waits for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
