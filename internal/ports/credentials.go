package ports

import "context"

// CredentialSource supplies the admin password used by the session
// bootstrapper. Read once per login attempt so a rotated credential is
// picked up on the next retry.
type CredentialSource interface {
	AdminPassword(ctx context.Context) (string, error)
}
