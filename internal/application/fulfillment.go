package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carlmn/rentsync/internal/domain"
)

// fulfillTick processes at most one order notification. The steps run
// in a fixed sequence; the first failure aborts the remaining steps for
// this tick and the next tick starts over. Completed steps are not
// rolled back: every step is either idempotent or tolerates a repeat,
// so at-least-once delivery is safe.
func (r *Reconciler) fulfillTick(ctx context.Context, logger zerolog.Logger) error {
	notifications, err := r.market.UnreadNotifications(ctx)
	if err != nil {
		return fmt.Errorf("fetch notifications: %w", err)
	}
	if len(notifications) == 0 {
		return nil
	}

	notification := notifications[0]
	if notification.Type != domain.NotificationTypeOrder {
		logger.Debug().Str("type", notification.Type).Msg("notification is not an order, leaving unread")
		return nil
	}

	deviceID := domain.DeviceIDFromSlug(notification.Slug)
	if !domain.ValidDeviceID(string(deviceID)) {
		return domain.NewValidationError("parse order slug",
			fmt.Sprintf("slug %q does not end in a device id", notification.Slug))
	}
	renewal := domain.IsRenewalSlug(notification.Slug)

	logger = logger.With().
		Str("device", string(deviceID)).
		Str("order", notification.OrderID).
		Bool("renewal", renewal).
		Logger()

	device, err := r.rental.Device(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("resolve device: %w", err)
	}
	data, err := r.rental.PrivateData(ctx, device.PrivateDataID)
	if err != nil {
		return fmt.Errorf("resolve device private data: %w", err)
	}

	if err := r.market.FulfillOrder(ctx, notification.OrderID, fulfillmentNote(device, data)); err != nil {
		return fmt.Errorf("fulfill order: %w", err)
	}
	if err := r.market.MarkNotificationRead(ctx, notification.ID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	updated, err := r.updateExpiration(ctx, deviceID, r.cfg.RentalPreset, renewal)
	if err != nil {
		return err
	}

	if err := r.rental.AddRented(ctx, deviceID); err != nil {
		return fmt.Errorf("add device to rented list: %w", err)
	}

	if err := r.removeListing(ctx, logger, updated); err != nil {
		return err
	}

	if err := r.recordPayment(ctx, data, notification.OrderID, updated.Expiration); err != nil {
		return err
	}

	logger.Info().Time("expiration", updated.Expiration).Msg("order fulfilled")
	return nil
}
