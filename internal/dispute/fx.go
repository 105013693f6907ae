package dispute

import (
	"go.uber.org/fx"

	"github.com/ringbill/ringbill/internal/dispute/service"
)

var Module = fx.Module("dispute.service",
	fx.Provide(service.NewService),
)
