// audit-tail follows the webhook audit topic and prints a structured
// summary of every delivery. Operational tool; it commits offsets under
// its own consumer group and never writes anywhere else.
package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/teerapatch/line-webhook/internal/config"
	"github.com/teerapatch/line-webhook/internal/infra/kafka/consumer"
	"github.com/teerapatch/line-webhook/internal/kafka/handlers/delivery"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	c := consumer.New(&cfg.Kafka, strategy, delivery.NewLoggedHandler())

	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")
	wg.Wait()

	if err := c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
