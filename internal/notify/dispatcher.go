package notify

import (
	"context"
	"time"

	"eclassbot-backend/internal/components/assert"
	"eclassbot-backend/internal/components/kv"
	"eclassbot-backend/internal/components/metrics"
	"eclassbot-backend/internal/components/telemetry"
)

const (
	report_kv   = "dispatcher.kv"
	report_send = "dispatcher.send"
)

// Sender delivers a message to a chat. Delivery is fire-and-forget, the
// dispatcher only logs what a Sender returns.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// Dispatcher gates every notification on an atomic set-if-absent and
// forwards the ones that win to the Sender.
type Dispatcher struct {
	kv      kv.API
	sender  Sender
	enabled bool
	metrics *metrics.Metrics

	tel telemetry.API
}

func NewDispatcher(kv kv.API, sender Sender, metrics *metrics.Metrics, tel telemetry.API) Dispatcher {
	assert.NotNil(kv, "kv")
	assert.NotNil(sender, "sender")
	assert.NotNil(tel, "tel")

	return Dispatcher{
		kv:      kv,
		sender:  sender,
		enabled: true,
		metrics: metrics,
		tel:     telemetry.NewScopedAPI("notify", tel),
	}
}

// Silenced returns a dispatcher that still claims dedupe keys but never
// sends anything.
func (d Dispatcher) Silenced() Dispatcher {
	d.enabled = false
	return d
}

func (d Dispatcher) Enabled() bool {
	return d.enabled
}

// NotifyOnce reports whether this call was the first to claim key within
// ttl. A store failure counts as a lost claim so nothing is sent twice.
func (d Dispatcher) NotifyOnce(ctx context.Context, key string, ttl time.Duration) bool {
	won, err := d.kv.SetNX(ctx, key, "1", ttl)
	if err != nil {
		d.tel.ReportBroken(report_kv, err, "SetNX", key)
		return false
	}
	return won
}

// Suppress claims key unconditionally so a later NotifyOnce on it loses.
func (d Dispatcher) Suppress(ctx context.Context, key string, ttl time.Duration) {
	err := d.kv.Set(ctx, key, "1", ttl)
	if err != nil {
		d.tel.ReportBroken(report_kv, err, "Set", key)
	}
}

// Release drops claimed keys so their notifications can fire again.
func (d Dispatcher) Release(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	err := d.kv.Del(ctx, keys...)
	if err != nil {
		d.tel.ReportBroken(report_kv, err, "Del", len(keys))
	}
}

// Send delivers text to chatID. Nothing happens when sending is disabled or
// the student has no chat linked.
func (d Dispatcher) Send(ctx context.Context, chatID, text string) {
	if !d.enabled {
		d.count("silenced")
		return
	}
	if chatID == "" {
		d.count("no_chat")
		return
	}
	err := d.sender.Send(ctx, chatID, text)
	if err != nil {
		d.tel.ReportWarning(report_send, err, chatID)
		d.count("failed")
		return
	}
	d.count("sent")
}

func (d Dispatcher) count(outcome string) {
	if d.metrics == nil {
		return
	}
	d.metrics.Notifications.WithLabelValues(outcome).Inc()
}
