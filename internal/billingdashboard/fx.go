package billingdashboard

import (
	"go.uber.org/fx"

	"github.com/ringbill/ringbill/internal/billingdashboard/service"
)

var Module = fx.Module("billingdashboard.service",
	fx.Provide(service.NewService),
)
