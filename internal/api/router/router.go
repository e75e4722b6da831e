package router

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"github.com/teerapatch/line-webhook/internal/api/handlers/webhook"
	"github.com/teerapatch/line-webhook/internal/api/middleware"
)

// Setup builds the HTTP router. The webhook route sits behind the
// signature middleware; everything else is operational.
func Setup(h *webhook.Handler, channelSecret string) *ginext.Engine {
	r := ginext.New()

	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.GET("/healthz", func(c *ginext.Context) {
		c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	hook := r.Group("/webhook")
	hook.Use(middleware.Signature(channelSecret))

	hook.POST("/line", h.Receive) // inbound LINE event deliveries

	return r
}
