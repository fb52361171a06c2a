package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	inventorydomain "github.com/smallbiznis/storefront/internal/inventory/domain"
)

type setInventoryRequest struct {
	Quantity *int64 `json:"quantity"`
	Reason   string `json:"reason"`
	Source   string `json:"source"`
}

type adjustInventoryRequest struct {
	Delta  *int64 `json:"delta"`
	Reason string `json:"reason"`
	Source string `json:"source"`
}

func (s *Server) ListInventory(c *gin.Context) {
	productID, err := queryInt64(c, "product_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	afterID, err := queryInt64(c, "after_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	includeRemoved, err := parseOptionalBool(c.Query("include_removed"))
	if err != nil {
		AbortWithError(c, newValidationError("include_removed", "invalid_include_removed", "must be a boolean"))
		return
	}
	lowStock, err := parseOptionalInt64(c.Query("low_stock_below"))
	if err != nil {
		AbortWithError(c, newValidationError("low_stock_below", "invalid_low_stock_below", "must be an integer"))
		return
	}

	req := inventorydomain.ListRequest{
		ProductID:     productID,
		LowStockBelow: lowStock,
		AfterID:       afterID,
		Limit:         limit,
	}
	if includeRemoved != nil {
		req.IncludeRemoved = *includeRemoved
	}

	rows, err := s.inventorySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) GetInventoryRow(c *gin.Context) {
	productID, variantID, ok := inventoryKey(c)
	if !ok {
		return
	}

	row, err := s.inventorySvc.Get(c.Request.Context(), productID, variantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": row})
}

func (s *Server) SetInventoryQuantity(c *gin.Context) {
	productID, variantID, ok := inventoryKey(c)
	if !ok {
		return
	}

	var req setInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Quantity == nil {
		AbortWithError(c, newValidationError("quantity", "required", "quantity is required"))
		return
	}

	result, err := s.inventorySvc.Set(c.Request.Context(), inventorydomain.SetRequest{
		Mutation: adminMutation(c, productID, variantID, req.Reason, req.Source),
		Quantity: *req.Quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) AdjustInventory(c *gin.Context) {
	productID, variantID, ok := inventoryKey(c)
	if !ok {
		return
	}

	var req adjustInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Delta == nil {
		AbortWithError(c, newValidationError("delta", "required", "delta is required"))
		return
	}

	result, err := s.inventorySvc.Adjust(c.Request.Context(), inventorydomain.AdjustRequest{
		Mutation: adminMutation(c, productID, variantID, req.Reason, req.Source),
		Delta:    *req.Delta,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) InventoryHistory(c *gin.Context) {
	productID, variantID, ok := inventoryKey(c)
	if !ok {
		return
	}
	afterSequence, err := queryInt64(c, "after_sequence")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.inventorySvc.History(c.Request.Context(), inventorydomain.HistoryRequest{
		ProductID:     productID,
		VariantID:     variantID,
		AfterSequence: afterSequence,
		Limit:         limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) VerifyInventoryRow(c *gin.Context) {
	productID, variantID, ok := inventoryKey(c)
	if !ok {
		return
	}

	result, err := s.inventorySvc.Verify(c.Request.Context(), productID, variantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) RemoveInventoryRow(c *gin.Context) {
	productID, variantID, ok := inventoryKey(c)
	if !ok {
		return
	}

	if err := s.inventorySvc.RemoveRow(c.Request.Context(), productID, variantID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func inventoryKey(c *gin.Context) (int64, int64, bool) {
	productID, err := pathID(c, "product_id")
	if err != nil {
		AbortWithError(c, err)
		return 0, 0, false
	}
	variantID, err := pathID(c, "variant_id")
	if err != nil {
		AbortWithError(c, err)
		return 0, 0, false
	}
	return productID, variantID, true
}

// adminMutation attributes a mutation to the authenticated admin. Admin calls
// default to the admin UI source; bulk imports name theirs explicitly.
func adminMutation(c *gin.Context, productID, variantID int64, reason, source string) inventorydomain.Mutation {
	m := inventorydomain.Mutation{
		ProductID: productID,
		VariantID: variantID,
		Source:    inventorydomain.SourceAdminUI,
	}
	if actor, ok := adminActor(c); ok {
		m.UserID = &actor
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		m.Reason = &reason
	}
	if source = strings.TrimSpace(source); source != "" {
		m.Source = inventorydomain.Source(source)
	}
	return m
}
