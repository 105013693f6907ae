package pricingrule

import (
	"go.uber.org/fx"

	"github.com/ringbill/ringbill/internal/pricingrule/service"
)

var Module = fx.Module("pricingrule.service",
	fx.Provide(service.NewService),
)
