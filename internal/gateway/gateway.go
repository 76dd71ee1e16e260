package gateway

import (
	"context"
	"time"
)

// SendAttrs are the normalized attributes of one outbound message.
type SendAttrs struct {
	Sender   string
	Phone    string
	Body     string
	Schedule *time.Time
	Lifetime int
	Attempt  int
}

// CampaignInfo is the gateway's view of one submitted message job.
type CampaignInfo struct {
	ID           string `json:"id"`
	Sent         int    `json:"sent"`
	Delivered    int    `json:"delivered"`
	NotDelivered int    `json:"not_delivered"`
	Status       string `json:"status"`
}

// Result is the gateway response envelope. Error responses carry Err
// and Code; success responses carry Result.
type Result struct {
	Err    string       `json:"error,omitempty"`
	Code   int          `json:"code,omitempty"`
	Result CampaignInfo `json:"result"`
}

// Valid reports whether the result carries no error indicator.
func (r *Result) Valid() bool {
	return r != nil && r.Err == ""
}

// Empty is the success-shaped zero result returned to callers when the
// gateway call failed or produced an invalid result.
func Empty() *Result {
	return &Result{}
}

// Client is the SMS gateway contract. Implementations own transport,
// auth and timeouts; a transport failure is returned as an error, a
// gateway-level failure as a Result with Err set.
type Client interface {
	SendSMS(ctx context.Context, attrs SendAttrs) (*Result, error)
	GetCampaignInfo(ctx context.Context, externalID string) (*Result, error)
}
