package application

import (
	"context"
	"fmt"
	"time"

	"github.com/carlmn/rentsync/internal/domain"
)

// Terminate ends a rental before its paid period is over: the newest
// payment is popped from the device's history, the unused portion is
// refunded to the buyer, and the device is expired and delisted. This
// is an operator action, not part of the polling loops.
func (r *Reconciler) Terminate(ctx context.Context, id domain.DeviceID) error {
	logger := r.log.With().Str("op", "terminate").Str("device", string(id)).Logger()

	device, err := r.rental.Device(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve device: %w", err)
	}
	data, err := r.rental.PrivateData(ctx, device.PrivateDataID)
	if err != nil {
		return fmt.Errorf("resolve device private data: %w", err)
	}

	if n := len(data.Payments); n > 0 {
		payment := data.Payments[n-1]
		data.Payments = data.Payments[:n-1]

		refund := ProratedRefund(payment, r.clock.Now(), r.cfg.RentalPreset)
		if refund > 0 {
			memo := fmt.Sprintf("early termination refund for device %s", id)
			if err := r.market.SendMoney(ctx, payment.RefundAddress, refund, memo); err != nil {
				return fmt.Errorf("send refund: %w", err)
			}
			logger.Info().Int64("amount", refund).Str("address", payment.RefundAddress).Msg("refund sent")
		}

		if err := r.rental.UpdatePrivateData(ctx, data); err != nil {
			return fmt.Errorf("store payment removal: %w", err)
		}
	}

	expired, err := r.updateExpiration(ctx, id, domain.PresetImmediate, false)
	if err != nil {
		return fmt.Errorf("force-expire device: %w", err)
	}
	if err := r.rental.RemoveRented(ctx, id); err != nil {
		return fmt.Errorf("remove device from rented list: %w", err)
	}
	if err := r.removeListing(ctx, logger, expired); err != nil {
		return err
	}

	logger.Info().Msg("rental terminated")
	return nil
}

// ProratedRefund computes how much of a payment to hand back when the
// rental ends at now: the fraction of the preset period still unused,
// floored. A payment already past its expiration refunds nothing.
func ProratedRefund(payment domain.Payment, now time.Time, preset domain.Preset) int64 {
	total := preset.Duration()
	if total <= 0 || payment.Amount <= 0 {
		return 0
	}

	remaining := payment.Expiration.Sub(now)
	if remaining <= 0 {
		return 0
	}
	if remaining > total {
		remaining = total
	}

	return payment.Amount * int64(remaining) / int64(total)
}
