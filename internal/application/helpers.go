package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carlmn/rentsync/internal/domain"
)

// updateExpiration moves a device's expiration by the given preset via
// a full-record read-modify-write. New rentals run from now; renewals
// extend the previous expiration.
func (r *Reconciler) updateExpiration(ctx context.Context, id domain.DeviceID, preset domain.Preset, renewal bool) (domain.Device, error) {
	device, err := r.rental.Device(ctx, id)
	if err != nil {
		return domain.Device{}, fmt.Errorf("fetch device for expiration update: %w", err)
	}

	next, err := domain.NextExpiration(r.clock.Now(), device.Expiration, preset, renewal)
	if err != nil {
		return domain.Device{}, err
	}
	device.Expiration = next

	updated, err := r.rental.UpdateDevice(ctx, device)
	if err != nil {
		return domain.Device{}, fmt.Errorf("store expiration update: %w", err)
	}
	if updated.Expiration.IsZero() {
		return domain.Device{}, domain.NewAPIError(domain.KindUnexpected, "update expiration", 0, "updated record missing expiration")
	}

	return updated, nil
}

// removeListing takes a device off the marketplace: delete the listing
// by the contract's slug, delete the contract record, then clear the
// device's contract reference. An already-deleted contract is logged
// and treated as done, so re-running after a partial failure is safe.
func (r *Reconciler) removeListing(ctx context.Context, logger zerolog.Logger, device domain.Device) error {
	if device.ContractID == "" {
		logger.Debug().Str("device", string(device.ID)).Msg("no active contract, nothing to delist")
		return nil
	}

	contract, err := r.rental.Contract(ctx, device.ContractID)
	if err != nil {
		if domain.IsNotFound(err) {
			logger.Warn().Str("device", string(device.ID)).Str("contract", device.ContractID).
				Msg("contract already removed")
			return nil
		}
		return fmt.Errorf("fetch contract: %w", err)
	}

	if err := r.market.RemoveListing(ctx, contract.Slug); err != nil {
		if !domain.IsNotFound(err) {
			return fmt.Errorf("remove marketplace listing: %w", err)
		}
		logger.Warn().Str("slug", contract.Slug).Msg("listing already removed")
	}

	if err := r.rental.DeleteContract(ctx, contract.ID); err != nil {
		if !domain.IsNotFound(err) {
			return fmt.Errorf("delete contract record: %w", err)
		}
		logger.Warn().Str("contract", contract.ID).Msg("contract record already deleted")
	}

	device.ContractID = ""
	if _, err := r.rental.UpdateDevice(ctx, device); err != nil {
		return fmt.Errorf("clear device contract reference: %w", err)
	}

	return nil
}

// recordPayment looks up what the buyer paid, withholds the marketplace
// fee and appends the net amount to the device's payment history.
func (r *Reconciler) recordPayment(ctx context.Context, data domain.PrivateData, orderID string, expiration time.Time) error {
	order, err := r.market.Order(ctx, orderID)
	if err != nil {
		return fmt.Errorf("fetch order payment: %w", err)
	}

	net, _ := domain.SplitFee(order.Amount, r.cfg.FeePercent)
	data.Payments = append(data.Payments, domain.Payment{
		Expiration:    expiration,
		Amount:        net,
		RefundAddress: order.RefundAddress,
	})

	if err := r.rental.UpdatePrivateData(ctx, data); err != nil {
		return fmt.Errorf("store payment record: %w", err)
	}

	return nil
}

// fulfillmentNote is the free-text message sent to the buyer with the
// order fulfillment: everything needed to reach the rented device.
func fulfillmentNote(device domain.Device, data domain.PrivateData) string {
	var b strings.Builder
	b.WriteString("Your rented device is ready.\n\n")
	fmt.Fprintf(&b, "Host: %s\n", device.Host)
	fmt.Fprintf(&b, "Port: %d\n", device.Port)
	if device.WebUIPort > 0 {
		fmt.Fprintf(&b, "Web UI port: %d\n", device.WebUIPort)
	}
	fmt.Fprintf(&b, "Login: %s\n", data.Login)
	fmt.Fprintf(&b, "Password: %s\n", data.Password)
	fmt.Fprintf(&b, "Device ID: %s\n", device.ID)
	return b.String()
}
