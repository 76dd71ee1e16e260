package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/okhv/sms-relay/internal/gateway"
	"github.com/okhv/sms-relay/internal/model"
	"github.com/okhv/sms-relay/internal/repo"
)

type ResendConfig struct {
	MinMinutes int
	MaxMinutes int
	MaxAttempt int
	BatchSize  int
}

// Resender re-dispatches messages that were never confirmed delivered.
// Each original record spawns at most one resend branch: once its
// resend back-link is set the sweep never picks it again, regardless of
// how the new attempt fares.
type Resender struct {
	dispatcher *Dispatcher
	repo       repo.MessageRepository
	cfg        ResendConfig
	logger     *slog.Logger
}

func NewResender(d *Dispatcher, r repo.MessageRepository, cfg ResendConfig, logger *slog.Logger) *Resender {
	return &Resender{
		dispatcher: d,
		repo:       r,
		cfg:        cfg,
		logger:     logger,
	}
}

// Resend sends a copy of msg through the regular dispatch path with the
// attempt counter bumped, then records the outcome on the original row:
// the incremented attempt always, the resend back-link only when the
// gateway accepted the new attempt. A rejected resend therefore leaves
// the record eligible until its attempt counter crosses the cap.
func (r *Resender) Resend(ctx context.Context, msg *model.Message) (*gateway.Result, error) {
	attrs := gateway.SendAttrs{
		Sender:   msg.Sender,
		Phone:    msg.Phone,
		Body:     msg.Body,
		Schedule: msg.ScheduledAt,
		Lifetime: msg.Lifetime,
		Attempt:  msg.Attempt + 1,
	}

	res, err := r.dispatcher.Send(ctx, attrs)
	if err != nil {
		return nil, err
	}

	var resendID *string
	if res.Valid() && res.Result.ID != "" {
		id := res.Result.ID
		resendID = &id
	}

	msg.Attempt++
	if err := r.repo.RecordResend(ctx, msg.ID, msg.Attempt, resendID); err != nil {
		return nil, err
	}
	if resendID != nil {
		msg.ResendExternalID = resendID
		smsResendsCounter.WithLabelValues("ok").Inc()
	} else {
		smsResendsCounter.WithLabelValues("gateway_error").Inc()
	}

	return res, nil
}

// SweepUndelivered selects records with no resend branch yet, at or
// under the attempt cap, not confirmed delivered, and created inside
// the (now-max, now-min) minute window, and resends each. Zero
// arguments fall back to the configured window.
func (r *Resender) SweepUndelivered(ctx context.Context, minMinutes, maxMinutes, maxAttempt int) error {
	if minMinutes <= 0 {
		minMinutes = r.cfg.MinMinutes
	}
	if maxMinutes <= 0 {
		maxMinutes = r.cfg.MaxMinutes
	}
	if maxAttempt <= 0 {
		maxAttempt = r.cfg.MaxAttempt
	}

	minAge := time.Duration(minMinutes) * time.Minute
	maxAge := time.Duration(maxMinutes) * time.Minute

	start := time.Now()
	var resent int
	defer func() {
		sweepDurationHist.WithLabelValues("resend").Observe(time.Since(start).Seconds())
		r.logger.InfoContext(ctx, "resend sweep finished", "resent", resent)
	}()

	var cursor int64
	for {
		batch, err := r.repo.ListResendable(ctx, cursor, minAge, maxAge, maxAttempt, r.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		for i := range batch {
			if _, err := r.Resend(ctx, &batch[i]); err != nil {
				return err
			}
			resent++
			sweepRecordsCounter.WithLabelValues("resend").Inc()
		}

		if len(batch) < r.cfg.BatchSize {
			return nil
		}
		cursor = batch[len(batch)-1].ID
	}
}
