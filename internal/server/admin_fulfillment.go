package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	fulfillmentdomain "github.com/smallbiznis/storefront/internal/fulfillment/domain"
)

func (s *Server) ListFulfillmentRetries(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	retries, err := s.retrySvc.ListRetries(c.Request.Context(), fulfillmentdomain.ListRetriesRequest{
		Status: fulfillmentdomain.RetryStatus(strings.TrimSpace(c.Query("status"))),
		Limit:  limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": retries})
}
