package ports

import (
	"context"

	"github.com/carlmn/rentsync/internal/domain"
)

// RentalAPI is the device-hosting backend: device records, the
// rented-device list, and marketplace contract records.
type RentalAPI interface {
	// Authenticate exchanges admin credentials for a session token and
	// retains it for subsequent calls.
	Authenticate(ctx context.Context, username, password string) error

	Device(ctx context.Context, id domain.DeviceID) (domain.Device, error)
	UpdateDevice(ctx context.Context, device domain.Device) (domain.Device, error)

	PrivateData(ctx context.Context, id string) (domain.PrivateData, error)
	UpdatePrivateData(ctx context.Context, data domain.PrivateData) error

	// AddRented is idempotent: adding a device already on the list
	// reports success.
	AddRented(ctx context.Context, id domain.DeviceID) error
	RemoveRented(ctx context.Context, id domain.DeviceID) error
	ListRented(ctx context.Context) ([]domain.DeviceID, error)

	Contract(ctx context.Context, id string) (domain.Contract, error)
	DeleteContract(ctx context.Context, id string) error
}
