package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carlmn/rentsync/internal/domain"
)

// rentedHealthTick walks the rented-device list and force-expires any
// device that has not checked in within the staleness threshold. A
// failing device aborts the remaining devices of the tick; the next
// tick re-lists everything, so nothing is lost.
func (r *Reconciler) rentedHealthTick(ctx context.Context, logger zerolog.Logger) error {
	ids, err := r.rental.ListRented(ctx)
	if err != nil {
		return fmt.Errorf("list rented devices: %w", err)
	}

	for _, id := range ids {
		device, err := r.rental.Device(ctx, id)
		if err != nil {
			return fmt.Errorf("fetch rented device %s: %w", id, err)
		}

		elapsed := r.clock.Now().Sub(device.LastCheckin)
		if elapsed <= r.cfg.StalenessThreshold {
			continue
		}

		if _, err := r.updateExpiration(ctx, id, domain.PresetImmediate, false); err != nil {
			return fmt.Errorf("force-expire device %s: %w", id, err)
		}
		if err := r.rental.RemoveRented(ctx, id); err != nil {
			return fmt.Errorf("remove device %s from rented list: %w", id, err)
		}

		logger.Info().Str("device", string(id)).Dur("sinceCheckin", elapsed).
			Msg("stale rented device expired and removed")
	}

	return nil
}

// listedHealthTick checks every active marketplace listing against the
// backing device. Removal triggers are evaluated in order: staleness,
// device expiration past the grace buffer, then contract expiration;
// the first match wins and that device is done for this tick.
func (r *Reconciler) listedHealthTick(ctx context.Context, logger zerolog.Logger) error {
	listings, err := r.market.Listings(ctx)
	if err != nil {
		return fmt.Errorf("list marketplace listings: %w", err)
	}

	for _, listing := range listings {
		id := domain.DeviceIDFromSlug(listing.Slug)
		if !domain.ValidDeviceID(string(id)) {
			continue
		}

		device, err := r.rental.Device(ctx, id)
		if err != nil {
			if domain.IsNotFound(err) {
				// The device record is gone; the listing is an orphan.
				if err := r.market.RemoveListing(ctx, listing.Slug); err != nil {
					return fmt.Errorf("remove orphaned listing %s: %w", listing.Slug, err)
				}
				logger.Warn().Str("slug", listing.Slug).Str("device", string(id)).
					Msg("listing removed, device record missing")
				return nil
			}
			return fmt.Errorf("fetch listed device %s: %w", id, err)
		}

		now := r.clock.Now()

		if elapsed := now.Sub(device.LastCheckin); elapsed > r.cfg.StalenessThreshold {
			expired, err := r.updateExpiration(ctx, id, domain.PresetImmediate, false)
			if err != nil {
				return fmt.Errorf("force-expire listed device %s: %w", id, err)
			}
			if err := r.removeListing(ctx, logger, expired); err != nil {
				return err
			}
			logger.Info().Str("device", string(id)).Dur("sinceCheckin", elapsed).
				Msg("listing removed, device stale")
			continue
		}

		if now.After(device.Expiration.Add(r.cfg.ExpirationGrace)) {
			if err := r.removeListing(ctx, logger, device); err != nil {
				return err
			}
			logger.Info().Str("device", string(id)).Time("expiration", device.Expiration).
				Msg("listing removed, device expired")
			continue
		}

		if device.ContractID != "" {
			contract, err := r.rental.Contract(ctx, device.ContractID)
			if err != nil {
				if domain.IsNotFound(err) {
					logger.Warn().Str("device", string(id)).Str("contract", device.ContractID).
						Msg("contract record missing for listed device")
					continue
				}
				return fmt.Errorf("fetch contract for device %s: %w", id, err)
			}
			if now.After(contract.Expiration) {
				if err := r.removeListing(ctx, logger, device); err != nil {
					return err
				}
				logger.Info().Str("device", string(id)).Time("contractExpiration", contract.Expiration).
					Msg("listing removed, contract expired")
			}
		}
	}

	return nil
}
