package application

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carlmn/rentsync/internal/domain"
	"github.com/carlmn/rentsync/internal/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func notFound(op string) error {
	return domain.NewAPIError(domain.KindNotFound, op, http.StatusNotFound, "")
}

// fakeRental is an in-memory rental API. Failures are injected per
// operation so tests can cut a cycle at any step.
type fakeRental struct {
	mu sync.Mutex

	devices   map[domain.DeviceID]domain.Device
	privdata  map[string]domain.PrivateData
	contracts map[string]domain.Contract
	rented    []domain.DeviceID

	authErr           error
	authCalls         int
	deviceErr         map[domain.DeviceID]error
	updateDeviceErr   error
	updatePrivateErr  error
	addRentedErr      error
	removeRentedErr   error
	listRentedErr     error
	deleteContractErr error
	listRentedCalls   int
}

var _ ports.RentalAPI = (*fakeRental)(nil)

func newFakeRental() *fakeRental {
	return &fakeRental{
		devices:   map[domain.DeviceID]domain.Device{},
		privdata:  map[string]domain.PrivateData{},
		contracts: map[string]domain.Contract{},
		deviceErr: map[domain.DeviceID]error{},
	}
}

func (f *fakeRental) Authenticate(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return f.authErr
}

func (f *fakeRental) Device(_ context.Context, id domain.DeviceID) (domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deviceErr[id]; err != nil {
		return domain.Device{}, err
	}
	device, ok := f.devices[id]
	if !ok {
		return domain.Device{}, notFound("get device")
	}
	return device, nil
}

func (f *fakeRental) UpdateDevice(_ context.Context, device domain.Device) (domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateDeviceErr != nil {
		return domain.Device{}, f.updateDeviceErr
	}
	f.devices[device.ID] = device
	return device, nil
}

func (f *fakeRental) PrivateData(_ context.Context, id string) (domain.PrivateData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.privdata[id]
	if !ok {
		return domain.PrivateData{}, domain.NewAPIError(domain.KindServerError, "get device private data", http.StatusInternalServerError, "private data unavailable")
	}
	return data, nil
}

func (f *fakeRental) UpdatePrivateData(_ context.Context, data domain.PrivateData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updatePrivateErr != nil {
		return f.updatePrivateErr
	}
	f.privdata[data.ID] = data
	return nil
}

func (f *fakeRental) AddRented(_ context.Context, id domain.DeviceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addRentedErr != nil {
		return f.addRentedErr
	}
	for _, existing := range f.rented {
		if existing == id {
			return nil
		}
	}
	f.rented = append(f.rented, id)
	return nil
}

func (f *fakeRental) RemoveRented(_ context.Context, id domain.DeviceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeRentedErr != nil {
		return f.removeRentedErr
	}
	for i, existing := range f.rented {
		if existing == id {
			f.rented = append(f.rented[:i], f.rented[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRental) ListRented(_ context.Context) ([]domain.DeviceID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listRentedCalls++
	if f.listRentedErr != nil {
		return nil, f.listRentedErr
	}
	ids := make([]domain.DeviceID, len(f.rented))
	copy(ids, f.rented)
	return ids, nil
}

func (f *fakeRental) Contract(_ context.Context, id string) (domain.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	contract, ok := f.contracts[id]
	if !ok {
		return domain.Contract{}, domain.NewAPIError(domain.KindNotFound, "get contract", http.StatusInternalServerError, "not found")
	}
	return contract, nil
}

func (f *fakeRental) DeleteContract(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteContractErr != nil {
		return f.deleteContractErr
	}
	delete(f.contracts, id)
	return nil
}

func (f *fakeRental) rentedIDs() []domain.DeviceID {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]domain.DeviceID, len(f.rented))
	copy(ids, f.rented)
	return ids
}

type fulfillment struct {
	OrderID string
	Note    string
}

type spend struct {
	Address string
	Amount  int64
	Memo    string
}

// fakeMarket is an in-memory marketplace.
type fakeMarket struct {
	mu sync.Mutex

	notifications []domain.Notification
	orders        map[string]domain.Order
	listings      []domain.Listing

	markedRead      []string
	fulfilled       []fulfillment
	removedListings []string
	spends          []spend

	notificationsErr error
	markReadErr      error
	fulfillErr       error
	removeListingErr error
	sendMoneyErr     error
	listingsErr      error

	notificationsCalls int
	listingsCalls      int
}

var _ ports.Marketplace = (*fakeMarket)(nil)

func newFakeMarket() *fakeMarket {
	return &fakeMarket{orders: map[string]domain.Order{}}
}

func (f *fakeMarket) UnreadNotifications(_ context.Context) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notificationsCalls++
	if f.notificationsErr != nil {
		return nil, f.notificationsErr
	}
	unread := make([]domain.Notification, 0, len(f.notifications))
	for _, n := range f.notifications {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

func (f *fakeMarket) MarkNotificationRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.markedRead = append(f.markedRead, id)
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].Read = true
		}
	}
	return nil
}

func (f *fakeMarket) Order(_ context.Context, orderID string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, notFound("get order")
	}
	return order, nil
}

func (f *fakeMarket) FulfillOrder(_ context.Context, orderID, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fulfillErr != nil {
		return f.fulfillErr
	}
	f.fulfilled = append(f.fulfilled, fulfillment{OrderID: orderID, Note: note})
	return nil
}

func (f *fakeMarket) Listings(_ context.Context) ([]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listingsCalls++
	if f.listingsErr != nil {
		return nil, f.listingsErr
	}
	listings := make([]domain.Listing, len(f.listings))
	copy(listings, f.listings)
	return listings, nil
}

func (f *fakeMarket) RemoveListing(_ context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeListingErr != nil {
		return f.removeListingErr
	}
	f.removedListings = append(f.removedListings, slug)
	for i, l := range f.listings {
		if l.Slug == slug {
			f.listings = append(f.listings[:i], f.listings[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeMarket) SendMoney(_ context.Context, address string, amount int64, memo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendMoneyErr != nil {
		return f.sendMoneyErr
	}
	f.spends = append(f.spends, spend{Address: address, Amount: amount, Memo: memo})
	return nil
}

type fakeCredentials struct {
	mu       sync.Mutex
	password string
	err      error
	calls    int
}

var _ ports.CredentialSource = (*fakeCredentials)(nil)

func (f *fakeCredentials) AdminPassword(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.password, nil
}

func newTestReconciler(rental *fakeRental, market *fakeMarket, clock ports.Clock) *Reconciler {
	return NewReconciler(rental, market, &fakeCredentials{password: "hunter2"}, clock, zerolog.Nop(), Config{
		BootstrapGrace: time.Millisecond,
	})
}
