package billingsettings

import (
	"go.uber.org/fx"

	"github.com/ringbill/ringbill/internal/billingsettings/service"
)

var Module = fx.Module("billingsettings.service",
	fx.Provide(service.NewService),
)
