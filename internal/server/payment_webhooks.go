package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/storefront/internal/observability/context"
)

// maxWebhookBody caps provider payloads; checkout events with expanded line
// items stay well below it.
const maxWebhookBody = 1 << 20

// HandlePaymentWebhook answers 200 once the delivery is settled, including
// duplicates and events the store does not act on. Failures before an order
// exists surface as 5xx so the provider redelivers.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	c.Set("payment_provider", provider)
	c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "webhook:"+provider))

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(payload) > maxWebhookBody {
		AbortWithError(c, ErrPayloadTooLarge)
		return
	}

	result, err := s.paymentSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "outcome": result.Outcome})
}
