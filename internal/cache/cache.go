package cache

import (
	"context"
	"time"
)

// StatusSnapshot is the last known delivery state of one campaign.
type StatusSnapshot struct {
	Code           int       `json:"code"`
	Label          string    `json:"label"`
	DispatchStatus string    `json:"dispatchStatus"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// StatusCache keeps the freshest reconciled status per external id so
// status lookups don't always hit the store. GetStatus returns
// (nil, nil) on a cache miss.
type StatusCache interface {
	StoreStatus(ctx context.Context, externalID string, snap StatusSnapshot) error
	GetStatus(ctx context.Context, externalID string) (*StatusSnapshot, error)
}
