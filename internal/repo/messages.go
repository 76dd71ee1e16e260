package repo

import (
	"context"
	"time"

	"github.com/okhv/sms-relay/internal/model"
)

// MessageRepository is the durable store of send attempts. Find methods
// return (nil, nil) when no row matches. The two List methods implement
// the sweep predicates with keyset pagination: they return rows with
// id > afterID ordered by id, at most limit of them.
type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	SetExternalID(ctx context.Context, id int64, externalID string) error

	// ApplyCampaignStatus writes the gateway-reported state onto one row.
	// The delivered transition is applied only while the row is still
	// pending; terminal states are never overwritten.
	ApplyCampaignStatus(ctx context.Context, id int64, sentStatus int, delivered model.DeliveryStatus, dispatchStatus string) error

	// RecordResend persists the incremented attempt counter on the
	// original row and, when the spawned attempt got an external id,
	// the back-link marking the row as already retried.
	RecordResend(ctx context.Context, id int64, attempt int, resendExternalID *string) error

	FindByExternalID(ctx context.Context, externalID string) (*model.Message, error)
	FindByRef(ctx context.Context, ref string) (*model.Message, error)

	// ListAwaitingStatus selects dispatched rows still pending delivery,
	// created within staleAfter and not touched for at least debounce.
	ListAwaitingStatus(ctx context.Context, afterID int64, staleAfter, debounce time.Duration, limit int) ([]model.Message, error)

	// ListResendable selects rows with no resend back-link, attempt at or
	// under maxAttempt, not confirmed delivered, created inside the
	// (now-maxAge, now-minAge) window.
	ListResendable(ctx context.Context, afterID int64, minAge, maxAge time.Duration, maxAttempt, limit int) ([]model.Message, error)

	ListRecent(ctx context.Context, limit, offset int) ([]model.Message, error)
}
