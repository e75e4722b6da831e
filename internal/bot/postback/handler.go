// Package postback handles postback events. Currently log-and-forward
// only; richer postback routing hangs off the same Handle contract.
package postback

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

// Handler forwards postback data to the spreadsheet logger.
type Handler struct {
	forms formsClient
}

// NewHandler creates a Handler with the given forms client.
func NewHandler(forms formsClient) *Handler {
	return &Handler{forms: forms}
}

// Handle logs the postback and forwards it to the logger. Never fails
// outward.
func (h *Handler) Handle(ctx context.Context, ev model.Event) {
	if ev.Postback == nil {
		zlog.Logger.Warn().Msg("postback event without postback payload")
		return
	}

	zlog.Logger.Info().
		Str("user_id", ev.Source.UserID).
		Str("data", ev.Postback.Data).
		Msg("handling postback event")

	payload := fmt.Sprintf("Postback: %s | User: %s", ev.Postback.Data, ev.Source.UserID)

	async.Detach("forms.postback", func() error {
		return h.forms.Submit(ctx, payload)
	})
}
