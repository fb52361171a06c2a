package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	cartdomain "github.com/smallbiznis/storefront/internal/cart/domain"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
)

type createCheckoutSessionRequest struct {
	CartID        string                       `json:"cart_id"`
	Lines         []checkoutdomain.RawLineItem `json:"lines"`
	CustomerEmail string                       `json:"customer_email"`
}

// CreateCheckoutSession prices the submitted lines and returns the provider
// redirect. When no lines are posted the stored cart is checked out.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req createCheckoutSessionRequest
	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var cartID *int64
	if raw := strings.TrimSpace(req.CartID); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("cart_id", "invalid_cart_id", "must be a positive integer"))
			return
		}
		cartID = &parsed
	}

	lines := req.Lines
	if len(lines) == 0 && cartID != nil {
		items, err := s.cartSvc.Items(c.Request.Context(), *cartID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		lines = cartLines(items)
	}

	session, err := s.checkoutSvc.Create(c.Request.Context(), checkoutdomain.Request{
		CartID:        cartID,
		Lines:         lines,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

func cartLines(items []cartdomain.Item) []checkoutdomain.RawLineItem {
	lines := make([]checkoutdomain.RawLineItem, 0, len(items))
	for _, item := range items {
		line := checkoutdomain.RawLineItem{
			ProductID:           json.Number(strconv.FormatInt(item.ProductID, 10)),
			Title:               item.Title,
			Quantity:            json.Number(strconv.FormatInt(item.Quantity, 10)),
			UnitPriceMinorUnits: json.Number(strconv.FormatInt(item.UnitAmount, 10)),
		}
		if item.VariantID != nil {
			line.VariantID = json.Number(strconv.FormatInt(*item.VariantID, 10))
		}
		lines = append(lines, line)
	}
	return lines
}
