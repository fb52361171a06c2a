package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetOrder lets the success page poll until the webhook has materialized the
// order for its session.
func (s *Server) GetOrder(c *gin.Context) {
	order, err := s.orderSvc.GetBySessionID(c.Request.Context(), strings.TrimSpace(c.Param("session_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) GetPackingSlip(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := s.orderSvc.GetBySessionID(ctx, strings.TrimSpace(c.Param("session_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	slip, err := s.notifier.PackingSlip(ctx, order)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, -1, "application/pdf", slip, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="packing-slip-%d.pdf"`, order.ID),
	})
}
