package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/teerapatch/line-webhook/internal/api/middleware"
	"github.com/teerapatch/line-webhook/internal/api/respond"
	"github.com/teerapatch/line-webhook/internal/model"
)

var errMissingBody = errors.New("request body missing")

// dispatcher schedules the per-event handling for an accepted delivery.
type dispatcher interface {
	Dispatch(ctx context.Context, batch model.EventBatch, raw []byte)
}

// Handler provides the HTTP handler for the LINE webhook endpoint.
type Handler struct {
	dispatcher dispatcher
}

// NewHandler creates a new Handler with the given dispatcher.
func NewHandler(d dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

// Receive accepts a signed webhook delivery. The response is sent once
// the batch is accepted for processing, not once processing completes.
func (h *Handler) Receive(c *ginext.Context) {
	raw := rawBody(c)
	if raw == nil {
		respond.Fail(c, http.StatusBadRequest, errMissingBody)
		return
	}

	var batch model.EventBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		zlog.Logger.Err(err).Msg("failed to decode webhook body")
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	h.dispatcher.Dispatch(c.Request.Context(), batch, raw)

	respond.Success(c)
}

// rawBody returns the body captured by the signature middleware,
// falling back to reading the request directly.
func rawBody(c *ginext.Context) []byte {
	if v, ok := c.Get(middleware.RawBodyKey); ok {
		if raw, ok := v.([]byte); ok {
			return raw
		}
	}

	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		return nil
	}

	return raw
}
