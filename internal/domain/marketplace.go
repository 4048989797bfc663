package domain

// NotificationTypeOrder is the only notification type the fulfillment
// loop acts on; everything else is left unread for the operator.
const NotificationTypeOrder = "order"

type Notification struct {
	ID      string
	Type    string
	Read    bool
	OrderID string
	// Slug is the listing slug; its trailing '-'-delimited token encodes
	// the device identifier.
	Slug string
}

type Listing struct {
	Slug string
}

// Order carries the fields the reconciler needs from a marketplace
// order: what the buyer paid and where a refund would go.
type Order struct {
	ID            string
	Amount        int64
	RefundAddress string
}
