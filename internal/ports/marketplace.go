package ports

import (
	"context"

	"github.com/carlmn/rentsync/internal/domain"
)

// Marketplace is the e-commerce platform hosting device listings and
// orders. It carries its own credential scheme, independent of the
// rental API session token.
type Marketplace interface {
	UnreadNotifications(ctx context.Context) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	Order(ctx context.Context, orderID string) (domain.Order, error)
	FulfillOrder(ctx context.Context, orderID, note string) error

	Listings(ctx context.Context) ([]domain.Listing, error)
	RemoveListing(ctx context.Context, slug string) error

	SendMoney(ctx context.Context, address string, amount int64, memo string) error
}
