package rating

import (
	"go.uber.org/fx"

	"github.com/ringbill/ringbill/internal/rating/service"
)

var Module = fx.Module("rating.service",
	fx.Provide(service.NewService),
)
