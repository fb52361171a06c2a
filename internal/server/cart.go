package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	cartdomain "github.com/smallbiznis/storefront/internal/cart/domain"
)

type addCartItemRequest struct {
	ProductID  string `json:"product_id"`
	VariantID  string `json:"variant_id"`
	Title      string `json:"title"`
	Quantity   int64  `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
}

func (s *Server) GetCart(c *gin.Context) {
	cartID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.cartSvc.Items(c.Request.Context(), cartID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":    strconv.FormatInt(cartID, 10),
		"items": items,
	}})
}

func (s *Server) AddCartItem(c *gin.Context) {
	cartID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	productID, err := strconv.ParseInt(strings.TrimSpace(req.ProductID), 10, 64)
	if err != nil || productID <= 0 {
		AbortWithError(c, newValidationError("product_id", "invalid_product_id", "must be a positive integer"))
		return
	}
	variantID, err := parseOptionalInt64(req.VariantID)
	if err != nil || (variantID != nil && *variantID <= 0) {
		AbortWithError(c, newValidationError("variant_id", "invalid_variant_id", "must be a positive integer"))
		return
	}

	item, err := s.cartSvc.AddItem(c.Request.Context(), cartID, cartdomain.AddItemRequest{
		ProductID:  productID,
		VariantID:  variantID,
		Title:      strings.TrimSpace(req.Title),
		Quantity:   req.Quantity,
		UnitAmount: req.UnitAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}
