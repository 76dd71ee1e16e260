package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/okhv/sms-relay/internal/gateway"
	"github.com/okhv/sms-relay/internal/model"
	"github.com/okhv/sms-relay/internal/repo"
)

// BeforeSendFunc observes the normalized attributes of a message about
// to be dispatched. AfterSendFunc additionally receives the raw gateway
// result (nil on transport failure) and the persisted record, if any.
// Observers are fire-and-forget: a panic in one is logged and cannot
// affect the dispatch outcome.
type (
	BeforeSendFunc func(attrs gateway.SendAttrs)
	AfterSendFunc  func(attrs gateway.SendAttrs, res *gateway.Result, msg *model.Message)
)

type DispatchConfig struct {
	Persist         bool
	DefaultSender   string
	DefaultLifetime int
}

// Dispatcher orchestrates one outbound send: normalize, persist a
// pending record, call the gateway, record the assigned external id.
type Dispatcher struct {
	gw     gateway.Client
	repo   repo.MessageRepository
	cfg    DispatchConfig
	logger *slog.Logger

	beforeSend []BeforeSendFunc
	afterSend  []AfterSendFunc
}

func NewDispatcher(gw gateway.Client, r repo.MessageRepository, cfg DispatchConfig, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		gw:     gw,
		repo:   r,
		cfg:    cfg,
		logger: logger,
	}
}

func (d *Dispatcher) OnBeforeSend(fn BeforeSendFunc) {
	d.beforeSend = append(d.beforeSend, fn)
}

func (d *Dispatcher) OnAfterSend(fn AfterSendFunc) {
	d.afterSend = append(d.afterSend, fn)
}

// Send dispatches one message. Gateway failures never surface as
// errors: the caller gets an empty result instead. An error is returned
// only when the store fails; the pending record then stays behind as an
// audit trail of the interrupted send.
func (d *Dispatcher) Send(ctx context.Context, attrs gateway.SendAttrs) (*gateway.Result, error) {
	attrs.Sender = NormalizeSender(attrs.Sender, d.cfg.DefaultSender)
	attrs.Phone = NormalizePhone(attrs.Phone)
	attrs.Lifetime = LifetimeOrDefault(attrs.Lifetime, d.cfg.DefaultLifetime)

	d.notifyBefore(attrs)

	var msg *model.Message
	if d.persisting() {
		msg = &model.Message{
			Ref:         uuid.NewString(),
			Sender:      attrs.Sender,
			Phone:       attrs.Phone,
			Body:        attrs.Body,
			ScheduledAt: attrs.Schedule,
			Lifetime:    attrs.Lifetime,
			Attempt:     attrs.Attempt,
		}
		if err := d.repo.Create(ctx, msg); err != nil {
			return nil, err
		}
	}

	res, err := d.gw.SendSMS(ctx, attrs)
	if err != nil {
		d.logger.WarnContext(ctx, "gateway send failed", "error", err, "phone", attrs.Phone)
		res = nil
	}

	d.notifyAfter(attrs, res, msg)

	if msg != nil && res.Valid() && res.Result.ID != "" {
		if uerr := d.repo.SetExternalID(ctx, msg.ID, res.Result.ID); uerr != nil {
			return nil, uerr
		}
		id := res.Result.ID
		msg.ExternalID = &id
	}

	if !res.Valid() {
		smsSendsCounter.WithLabelValues("gateway_error").Inc()
		return gateway.Empty(), nil
	}

	smsSendsCounter.WithLabelValues("ok").Inc()
	return res, nil
}

func (d *Dispatcher) persisting() bool {
	return d.cfg.Persist && d.repo != nil
}

func (d *Dispatcher) notifyBefore(attrs gateway.SendAttrs) {
	for _, fn := range d.beforeSend {
		d.invoke(func() { fn(attrs) })
	}
}

func (d *Dispatcher) notifyAfter(attrs gateway.SendAttrs, res *gateway.Result, msg *model.Message) {
	for _, fn := range d.afterSend {
		d.invoke(func() { fn(attrs, res, msg) })
	}
}

func (d *Dispatcher) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("send observer panic recovered", "panic", r)
		}
	}()
	fn()
}
