package service_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/okhv/sms-relay/internal/cache"
	"github.com/okhv/sms-relay/internal/gateway"
	"github.com/okhv/sms-relay/internal/model"
	"github.com/okhv/sms-relay/internal/repo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memRepo is an in-memory MessageRepository implementing the same
// selection predicates as the Postgres queries.
type memRepo struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]*model.Message

	createErr error
}

var _ repo.MessageRepository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int64]*model.Message)}
}

// put inserts a row with caller-controlled timestamps.
func (r *memRepo) put(m model.Message) *model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	m.ID = r.seq
	cp := m
	r.rows[m.ID] = &cp
	return &cp
}

func (r *memRepo) get(id int64) model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.rows[id]
}

func (r *memRepo) Create(ctx context.Context, m *model.Message) error {
	if r.createErr != nil {
		return r.createErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	m.ID = r.seq
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = m.CreatedAt

	cp := *m
	r.rows[m.ID] = &cp
	return nil
}

func (r *memRepo) SetExternalID(ctx context.Context, id int64, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.rows[id]; ok && m.ExternalID == nil {
		m.ExternalID = &externalID
		m.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *memRepo) ApplyCampaignStatus(ctx context.Context, id int64, sentStatus int, delivered model.DeliveryStatus, dispatchStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.rows[id]
	if !ok {
		return nil
	}
	m.SentStatus = sentStatus
	if m.DeliveredStatus == model.DeliveryPending {
		m.DeliveredStatus = delivered
	}
	m.DispatchStatus = dispatchStatus
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memRepo) RecordResend(ctx context.Context, id int64, attempt int, resendExternalID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.rows[id]
	if !ok {
		return nil
	}
	m.Attempt = attempt
	if resendExternalID != nil {
		s := *resendExternalID
		m.ResendExternalID = &s
	}
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memRepo) FindByExternalID(ctx context.Context, externalID string) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *model.Message
	for _, m := range r.rows {
		if m.ExternalID != nil && *m.ExternalID == externalID {
			if best == nil || m.ID < best.ID {
				best = m
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r *memRepo) FindByRef(ctx context.Context, ref string) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.rows {
		if m.Ref == ref {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListAwaitingStatus(ctx context.Context, afterID int64, staleAfter, debounce time.Duration, limit int) ([]model.Message, error) {
	now := time.Now().UTC()
	return r.selectRows(afterID, limit, func(m *model.Message) bool {
		return m.ExternalID != nil &&
			m.DeliveredStatus == model.DeliveryPending &&
			m.CreatedAt.After(now.Add(-staleAfter)) &&
			m.UpdatedAt.Before(now.Add(-debounce))
	}), nil
}

func (r *memRepo) ListResendable(ctx context.Context, afterID int64, minAge, maxAge time.Duration, maxAttempt, limit int) ([]model.Message, error) {
	now := time.Now().UTC()
	return r.selectRows(afterID, limit, func(m *model.Message) bool {
		return m.ResendExternalID == nil &&
			m.Attempt <= maxAttempt &&
			m.DeliveredStatus != model.Delivered &&
			m.CreatedAt.After(now.Add(-maxAge)) &&
			m.CreatedAt.Before(now.Add(-minAge))
	}), nil
}

func (r *memRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Message
	for _, m := range r.rows {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) selectRows(afterID int64, limit int, pred func(*model.Message) bool) []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Message
	for _, m := range r.rows {
		if m.ID > afterID && pred(m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// stubGateway scripts gateway responses and records calls.
type stubGateway struct {
	mu sync.Mutex

	sendRes *gateway.Result
	sendErr error
	onSend  func(attrs gateway.SendAttrs)

	infoRes map[string]*gateway.Result
	infoErr error

	sendCalls []gateway.SendAttrs
	infoCalls []string
}

var _ gateway.Client = (*stubGateway)(nil)

func (g *stubGateway) SendSMS(ctx context.Context, attrs gateway.SendAttrs) (*gateway.Result, error) {
	g.mu.Lock()
	g.sendCalls = append(g.sendCalls, attrs)
	onSend := g.onSend
	g.mu.Unlock()

	if onSend != nil {
		onSend(attrs)
	}
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	if g.sendRes == nil {
		return &gateway.Result{Result: gateway.CampaignInfo{ID: "ext-1"}}, nil
	}
	cp := *g.sendRes
	return &cp, nil
}

func (g *stubGateway) GetCampaignInfo(ctx context.Context, externalID string) (*gateway.Result, error) {
	g.mu.Lock()
	g.infoCalls = append(g.infoCalls, externalID)
	g.mu.Unlock()

	if g.infoErr != nil {
		return nil, g.infoErr
	}
	if res, ok := g.infoRes[externalID]; ok {
		cp := *res
		return &cp, nil
	}
	return &gateway.Result{Err: "campaign not found", Code: 404}, nil
}

func (g *stubGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sendCalls)
}

func (g *stubGateway) infoCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.infoCalls)
}

// memCache records status snapshots per external id.
type memCache struct {
	mu    sync.Mutex
	snaps map[string]cache.StatusSnapshot
}

var _ cache.StatusCache = (*memCache)(nil)

func newMemCache() *memCache {
	return &memCache{snaps: make(map[string]cache.StatusSnapshot)}
}

func (c *memCache) StoreStatus(ctx context.Context, externalID string, snap cache.StatusSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[externalID] = snap
	return nil
}

func (c *memCache) GetStatus(ctx context.Context, externalID string) (*cache.StatusSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap, ok := c.snaps[externalID]; ok {
		return &snap, nil
	}
	return nil, nil
}

func testLabels() map[int]string {
	return map[int]string{
		0: "not yet dispatched",
		1: "delivered",
		2: "failed",
		3: "sent, awaiting delivery",
		4: "dispatched, awaiting gateway",
	}
}

func strPtr(s string) *string { return &s }
