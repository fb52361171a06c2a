package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	inventorydomain "github.com/smallbiznis/storefront/internal/inventory/domain"
)

type addVariantRequest struct {
	Name            string `json:"name"`
	SKU             string `json:"sku"`
	UnitAmount      int64  `json:"unit_amount"`
	InitialQuantity *int64 `json:"initial_quantity"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req catalogdomain.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.catalogSvc.CreateProduct(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (s *Server) GetProduct(c *gin.Context) {
	productID, err := pathID(c, "product_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	product, err := s.catalogSvc.GetProduct(ctx, productID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	variants, err := s.catalogSvc.ListVariants(ctx, productID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"product":  product,
		"variants": variants,
	}})
}

// AddVariant creates a variant and, when an initial quantity is given, its
// inventory row in one call.
func (s *Server) AddVariant(c *gin.Context) {
	productID, err := pathID(c, "product_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req addVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	in := inventorydomain.AddVariantRequest{
		ProductID:       productID,
		Name:            req.Name,
		SKU:             req.SKU,
		UnitAmount:      req.UnitAmount,
		InitialQuantity: req.InitialQuantity,
	}
	if actor, ok := adminActor(c); ok {
		in.UserID = &actor
	}

	result, err := s.inventorySvc.AddVariant(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
