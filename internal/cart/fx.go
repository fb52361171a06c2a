package cart

import (
	"github.com/smallbiznis/storefront/internal/cart/domain"
	"github.com/smallbiznis/storefront/internal/cart/service"
	fulfillmentdomain "github.com/smallbiznis/storefront/internal/fulfillment/domain"
	"github.com/smallbiznis/storefront/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("cart.service",
	fx.Provide(repository.ProvideStore[domain.Cart]),
	fx.Provide(repository.ProvideStore[domain.Item]),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) fulfillmentdomain.CartClearer { return s }),
)
