package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/okhv/sms-relay/internal/cache"
	"github.com/okhv/sms-relay/internal/gateway"
	"github.com/okhv/sms-relay/internal/model"
	"github.com/okhv/sms-relay/internal/repo"
)

// statusDebounce keeps the sweep from re-polling records the store
// touched moments ago.
const statusDebounce = time.Minute

type ReconcileConfig struct {
	Persist         bool
	StaleAfterHours int
	BatchSize       int
}

// Reconciler polls the gateway for delivery state and folds it back
// into the store. Updates are monotonic per record, so re-running a
// sweep or refreshing the same id twice is harmless.
type Reconciler struct {
	gw        gateway.Client
	repo      repo.MessageRepository
	cache     cache.StatusCache
	presenter *StatusPresenter
	cfg       ReconcileConfig
	logger    *slog.Logger
}

func NewReconciler(gw gateway.Client, r repo.MessageRepository, c cache.StatusCache, p *StatusPresenter, cfg ReconcileConfig, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		gw:        gw,
		repo:      r,
		cache:     c,
		presenter: p,
		cfg:       cfg,
		logger:    logger,
	}
}

// RefreshStatus queries the gateway for one campaign and applies the
// reported state to the matching record. Gateway failures yield an
// empty result, never an error; the record is left untouched so the
// next sweep retries cleanly.
func (r *Reconciler) RefreshStatus(ctx context.Context, externalID string) (*gateway.Result, error) {
	res, err := r.gw.GetCampaignInfo(ctx, externalID)
	if err != nil {
		r.logger.WarnContext(ctx, "campaign info query failed", "error", err, "external_id", externalID)
		statusRefreshCounter.WithLabelValues("gateway_error").Inc()
		return gateway.Empty(), nil
	}
	if !res.Valid() {
		statusRefreshCounter.WithLabelValues("gateway_error").Inc()
		return gateway.Empty(), nil
	}

	if r.persisting() {
		msg, err := r.repo.FindByExternalID(ctx, externalID)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			if err := r.apply(ctx, msg, res); err != nil {
				return nil, err
			}
		}
	}

	statusRefreshCounter.WithLabelValues("ok").Inc()
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, msg *model.Message, res *gateway.Result) error {
	delivered := msg.DeliveredStatus
	if delivered == model.DeliveryPending {
		switch {
		case res.Result.Delivered == 1:
			delivered = model.Delivered
		case res.Result.NotDelivered == 1:
			delivered = model.DeliveryFailed
		}
	}

	if err := r.repo.ApplyCampaignStatus(ctx, msg.ID, res.Result.Sent, delivered, res.Result.Status); err != nil {
		return err
	}

	msg.SentStatus = res.Result.Sent
	msg.DeliveredStatus = delivered
	msg.DispatchStatus = res.Result.Status

	if r.cache != nil && msg.ExternalID != nil {
		snap := cache.StatusSnapshot{
			Code:           r.presenter.Code(msg),
			Label:          r.presenter.HumanStatus(msg),
			DispatchStatus: msg.DispatchStatus,
			UpdatedAt:      time.Now().UTC(),
		}
		if err := r.cache.StoreStatus(ctx, *msg.ExternalID, snap); err != nil {
			r.logger.WarnContext(ctx, "status cache write failed", "error", err, "external_id", *msg.ExternalID)
		}
	}

	return nil
}

// SweepPending walks every dispatched record still awaiting delivery
// confirmation, bounded by staleAfterHours, and refreshes
// each one. Pass 0 to use the configured staleness window. Gateway
// failures are isolated per record; store failures abort the sweep.
func (r *Reconciler) SweepPending(ctx context.Context, staleAfterHours int) error {
	if !r.persisting() {
		return nil
	}
	if staleAfterHours <= 0 {
		staleAfterHours = r.cfg.StaleAfterHours
	}
	staleAfter := time.Duration(staleAfterHours) * time.Hour

	start := time.Now()
	var processed int
	defer func() {
		sweepDurationHist.WithLabelValues("status").Observe(time.Since(start).Seconds())
		r.logger.InfoContext(ctx, "status sweep finished", "processed", processed)
	}()

	var cursor int64
	for {
		batch, err := r.repo.ListAwaitingStatus(ctx, cursor, staleAfter, statusDebounce, r.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		for i := range batch {
			m := &batch[i]
			if m.ExternalID == nil {
				continue
			}
			if _, err := r.RefreshStatus(ctx, *m.ExternalID); err != nil {
				return err
			}
			processed++
			sweepRecordsCounter.WithLabelValues("status").Inc()
		}

		if len(batch) < r.cfg.BatchSize {
			return nil
		}
		cursor = batch[len(batch)-1].ID
	}
}

func (r *Reconciler) persisting() bool {
	return r.cfg.Persist && r.repo != nil
}
