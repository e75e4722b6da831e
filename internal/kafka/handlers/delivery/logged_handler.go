// Package delivery handles audit-topic messages carrying raw webhook
// deliveries.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/teerapatch/line-webhook/internal/model"
)

// LoggedHandler summarizes each audited delivery into a structured log
// line. It is the terminal consumer of the audit topic: deliveries are
// already persisted and handled by the webhook service.
type LoggedHandler struct{}

// NewLoggedHandler creates a new handler.
func NewLoggedHandler() *LoggedHandler {
	return &LoggedHandler{}
}

// Handle decodes an audited delivery and logs its summary.
func (h *LoggedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var batch model.EventBatch
	if err := json.Unmarshal(msg.Value, &batch); err != nil {
		return fmt.Errorf("unmarshal delivery: %w", err)
	}

	types := make(map[model.EventType]int, len(batch.Events))
	for _, ev := range batch.Events {
		types[ev.Type]++
	}

	zlog.Logger.Info().
		Int64("offset", msg.Offset).
		Str("destination", batch.Destination).
		Int("events", len(batch.Events)).
		Interface("types", types).
		Msg("audited delivery")

	return nil
}
