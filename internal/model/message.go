package model

import "time"

// DeliveryStatus tracks the gateway-confirmed delivery outcome of one
// send attempt. Transitions are forward-only: pending may become
// delivered or failed, terminal states never revert.
type DeliveryStatus int

const (
	DeliveryPending DeliveryStatus = 0
	Delivered       DeliveryStatus = 1
	DeliveryFailed  DeliveryStatus = 2
)

// Sent-status values reported by the gateway.
const (
	NotSent         = 0
	SentToRecipient = 1
)

// Message is one outbound send attempt. Resends create a new row and
// link it from the original via ResendExternalID.
type Message struct {
	ID               int64
	Ref              string
	Sender           string
	Phone            string
	Body             string
	ScheduledAt      *time.Time
	Lifetime         int
	ExternalID       *string
	SentStatus       int
	DeliveredStatus  DeliveryStatus
	DispatchStatus   string
	ResendExternalID *string
	Attempt          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Dispatched reports whether the gateway accepted this attempt and
// assigned it an external id.
func (m *Message) Dispatched() bool {
	return m.ExternalID != nil && *m.ExternalID != ""
}
