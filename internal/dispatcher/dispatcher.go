// Package dispatcher routes inbound webhook deliveries to per-event
// handlers without blocking the HTTP response.
package dispatcher

import (
	"context"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/teerapatch/line-webhook/internal/async"
	"github.com/teerapatch/line-webhook/internal/model"
)

// handler processes a single event. Implementations must not panic on
// malformed input and must not return: failures are logged internally.
type handler interface {
	Handle(ctx context.Context, ev model.Event)
}

// eventRepository persists raw deliveries for audit.
type eventRepository interface {
	SaveBatch(ctx context.Context, destination string, payload []byte) (uuid.UUID, error)
}

// formsClient forwards payload copies to the spreadsheet logger.
type formsClient interface {
	Submit(ctx context.Context, payload any) error
}

// auditProducer publishes raw deliveries to the Kafka audit topic.
type auditProducer interface {
	Produce(ctx context.Context, destination string, payload []byte) error
}

// Dispatcher fans a delivery out to the type-matched handlers. Each
// event is handled in its own detached task: one event's failure never
// reaches its siblings or the caller.
type Dispatcher struct {
	events    eventRepository
	forms     formsClient
	audit     auditProducer
	message   handler
	postback  handler
	lifecycle handler
}

// New creates a Dispatcher with explicitly wired collaborators.
func New(events eventRepository, forms formsClient, audit auditProducer, message, postback, lifecycle handler) *Dispatcher {
	return &Dispatcher{
		events:    events,
		forms:     forms,
		audit:     audit,
		message:   message,
		postback:  postback,
		lifecycle: lifecycle,
	}
}

// Dispatch accepts a delivery for processing and returns once all
// per-event work has been scheduled. raw is the unparsed request body,
// kept verbatim for audit and forwarding.
func (d *Dispatcher) Dispatch(ctx context.Context, batch model.EventBatch, raw []byte) {
	zlog.Logger.Info().
		Str("destination", batch.Destination).
		Int("events", len(batch.Events)).
		Msg("dispatching webhook delivery")

	// Best-effort audit write. Downstream handling proceeds either way.
	if _, err := d.events.SaveBatch(ctx, batch.Destination, raw); err != nil {
		zlog.Logger.Err(err).Msg("failed to persist webhook payload")
	}

	// Detached work must survive the HTTP response lifecycle.
	bg := context.WithoutCancel(ctx)

	async.Detach("forms.delivery", func() error {
		return d.forms.Submit(bg, string(raw))
	})

	async.Detach("kafka.audit", func() error {
		return d.audit.Produce(bg, batch.Destination, raw)
	})

	for _, ev := range batch.Events {
		d.dispatchEvent(bg, ev)
	}
}

func (d *Dispatcher) dispatchEvent(ctx context.Context, ev model.Event) {
	var h handler

	switch ev.Type {
	case model.EventTypeMessage:
		h = d.message
	case model.EventTypePostback:
		h = d.postback
	case model.EventTypeFollow, model.EventTypeUnfollow:
		h = d.lifecycle
	default:
		zlog.Logger.Info().
			Str("type", string(ev.Type)).
			Msg("unsupported event type, skipping")
		return
	}

	async.Detach("event."+string(ev.Type), func() error {
		h.Handle(ctx, ev)
		return nil
	})
}
