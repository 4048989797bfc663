package application

import "context"

// Bootstrap obtains a rental API session token. It waits the configured
// grace period for the API to become reachable, reads the admin
// password from the credential source and logs in; on any failure it
// waits the same grace period and tries again. It never gives up: the
// only way out without a session is context cancellation.
func (r *Reconciler) Bootstrap(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if err := sleepCtx(ctx, r.cfg.BootstrapGrace); err != nil {
			return err
		}

		password, err := r.creds.AdminPassword(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn().Err(err).Int("attempt", attempt).Msg("read admin credentials failed, retrying")
			continue
		}

		if err := r.rental.Authenticate(ctx, r.cfg.AdminUsername, password); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn().Err(err).Int("attempt", attempt).Msg("rental api login failed, retrying")
			continue
		}

		r.log.Info().Int("attempt", attempt).Msg("rental api session established")
		return nil
	}
}
