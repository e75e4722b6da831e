// Package lifecycle handles follow and unfollow events.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"github.com/teerapatch/line-webhook/internal/async"
	"github.com/teerapatch/line-webhook/internal/model"
)

type formsClient interface {
	Submit(ctx context.Context, payload any) error
}

// Handler records follow/unfollow activity. No persistence; the events
// are noted in the log and the spreadsheet.
type Handler struct {
	forms formsClient
}

// NewHandler creates a Handler with the given forms client.
func NewHandler(forms formsClient) *Handler {
	return &Handler{forms: forms}
}

// Handle logs the lifecycle change and forwards a note to the logger.
// Never fails outward.
func (h *Handler) Handle(ctx context.Context, ev model.Event) {
	switch ev.Type {
	case model.EventTypeFollow:
		zlog.Logger.Info().Str("user_id", ev.Source.UserID).Msg("user followed")
	case model.EventTypeUnfollow:
		zlog.Logger.Info().Str("user_id", ev.Source.UserID).Msg("user unfollowed")
	default:
		zlog.Logger.Warn().Str("type", string(ev.Type)).Msg("unexpected lifecycle event type")
		return
	}

	payload := fmt.Sprintf("Lifecycle: %s | User: %s", ev.Type, ev.Source.UserID)

	async.Detach("forms.lifecycle", func() error {
		return h.forms.Submit(ctx, payload)
	})
}
