package notification

import (
	fulfillmentdomain "github.com/smallbiznis/storefront/internal/fulfillment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(New),
	fx.Provide(func(s *Service) fulfillmentdomain.Notifier { return s }),
)
