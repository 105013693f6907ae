package call

import (
	"go.uber.org/fx"

	"github.com/ringbill/ringbill/internal/call/domain"
	"github.com/ringbill/ringbill/internal/call/repository"
)

var Module = fx.Module("call.repository",
	fx.Provide(func() domain.Repository { return repository.Provide() }),
)
