package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/okhv/sms-relay/internal/cache"
	"github.com/okhv/sms-relay/internal/gateway"
	"github.com/okhv/sms-relay/internal/model"
	"github.com/okhv/sms-relay/internal/repo"
	"github.com/okhv/sms-relay/internal/service"
)

// Sender dispatches one outbound message.
type Sender interface {
	Send(ctx context.Context, attrs gateway.SendAttrs) (*gateway.Result, error)
}

// Refresher re-queries the gateway for one campaign's delivery state.
type Refresher interface {
	RefreshStatus(ctx context.Context, externalID string) (*gateway.Result, error)
}

// Sweep is a controllable periodic job.
type Sweep interface {
	Start() bool
	Stop() bool
	IsRunning() bool
}

type Handler struct {
	sender    Sender
	refresher Refresher
	presenter *service.StatusPresenter
	repo      repo.MessageRepository
	cache     cache.StatusCache
	sweeps    map[string]Sweep
}

func NewHandler(sender Sender, refresher Refresher, presenter *service.StatusPresenter, r repo.MessageRepository, c cache.StatusCache, sweeps map[string]Sweep) *Handler {
	return &Handler{
		sender:    sender,
		refresher: refresher,
		presenter: presenter,
		repo:      r,
		cache:     c,
		sweeps:    sweeps,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type sendMessageRequest struct {
	Sender      string `json:"sender"`
	Phone       string `json:"phone"`
	Body        string `json:"body"`
	Lifetime    int    `json:"lifetime"`
	ScheduledAt string `json:"scheduledAt"`
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Phone == "" {
		http.Error(w, "phone is required", http.StatusBadRequest)
		return
	}

	attrs := gateway.SendAttrs{
		Sender:   req.Sender,
		Phone:    req.Phone,
		Body:     req.Body,
		Lifetime: req.Lifetime,
	}
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			http.Error(w, "scheduledAt must be RFC3339", http.StatusBadRequest)
			return
		}
		attrs.Schedule = &t
	}

	res, err := h.sender.Send(r.Context(), attrs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": res})
}

type messageResponse struct {
	Ref              string  `json:"ref"`
	Sender           string  `json:"sender"`
	Phone            string  `json:"phone"`
	Body             string  `json:"body"`
	ExternalID       *string `json:"externalId"`
	SentStatus       int     `json:"sentStatus"`
	DeliveredStatus  int     `json:"deliveredStatus"`
	DispatchStatus   string  `json:"dispatchStatus"`
	ResendExternalID *string `json:"resendExternalId"`
	Attempt          int     `json:"attempt"`
	HumanStatus      string  `json:"humanStatus"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

func (h *Handler) toResponse(ctx context.Context, m *model.Message) messageResponse {
	label := h.presenter.HumanStatus(m)

	// Prefer the reconciler's cached snapshot when it exists; it may be
	// fresher than the row the status was read from.
	if h.cache != nil && m.ExternalID != nil {
		if snap, err := h.cache.GetStatus(ctx, *m.ExternalID); err == nil && snap != nil {
			label = snap.Label
		}
	}

	return messageResponse{
		Ref:              m.Ref,
		Sender:           m.Sender,
		Phone:            m.Phone,
		Body:             m.Body,
		ExternalID:       m.ExternalID,
		SentStatus:       m.SentStatus,
		DeliveredStatus:  int(m.DeliveredStatus),
		DispatchStatus:   m.DispatchStatus,
		ResendExternalID: m.ResendExternalID,
		Attempt:          m.Attempt,
		HumanStatus:      label,
		CreatedAt:        m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "persistence disabled", http.StatusNotImplemented)
		return
	}

	ref := r.PathValue("ref")
	msg, err := h.repo.FindByRef(r.Context(), ref)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if msg == nil {
		http.Error(w, "message not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(r.Context(), msg))
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "persistence disabled", http.StatusNotImplemented)
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	items, err := h.repo.ListRecent(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]messageResponse, 0, len(items))
	for i := range items {
		out = append(out, h.toResponse(r.Context(), &items[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) RefreshCampaign(w http.ResponseWriter, r *http.Request) {
	externalID := r.PathValue("externalID")
	if externalID == "" {
		http.Error(w, "externalID is required", http.StatusBadRequest)
		return
	}

	res, err := h.refresher.RefreshStatus(r.Context(), externalID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": res})
}

func (h *Handler) SweepsStatus(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]bool, len(h.sweeps))
	for name, s := range h.sweeps {
		out[name] = s.IsRunning()
	}
	writeJSON(w, http.StatusOK, map[string]any{"sweeps": out})
}

func (h *Handler) StartSweep(w http.ResponseWriter, r *http.Request) {
	h.toggleSweep(w, r, func(s Sweep) { s.Start() })
}

func (h *Handler) StopSweep(w http.ResponseWriter, r *http.Request) {
	h.toggleSweep(w, r, func(s Sweep) { s.Stop() })
}

func (h *Handler) toggleSweep(w http.ResponseWriter, r *http.Request, action func(Sweep)) {
	name := r.PathValue("name")
	s, ok := h.sweeps[name]
	if !ok {
		http.Error(w, "unknown sweep", http.StatusNotFound)
		return
	}

	action(s)
	writeJSON(w, http.StatusOK, map[string]any{"sweep": name, "running": s.IsRunning()})
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
