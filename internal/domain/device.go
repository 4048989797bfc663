package domain

import "time"

type DeviceID string

// Device is the rental API's public record for a hosted device. It is
// owned by the rental API and never cached beyond one loop iteration;
// mutations go through full-record replace.
type Device struct {
	ID            DeviceID
	Owner         string
	Host          string
	Port          int
	WebUIPort     int
	LastCheckin   time.Time
	Expiration    time.Time
	PrivateDataID string
	// ContractID references the active marketplace contract, empty when
	// the device has no live listing.
	ContractID string
}

// PrivateData holds the device's login secrets and its payment history.
// Payments are ordered oldest first; the newest payment backs the
// current rental period.
type PrivateData struct {
	ID         string
	Login      string
	Password   string
	Payments   []Payment
	AmountOwed int64
}

type Payment struct {
	// Expiration marks when the paid-for rental period ends.
	Expiration    time.Time
	Amount        int64
	RefundAddress string
}

// Contract links a device to an active marketplace listing. Deleting
// the contract implies the listing is gone too.
type Contract struct {
	ID         string
	Slug       string
	Expiration time.Time
}
