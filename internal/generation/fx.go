package generation

import "go.uber.org/fx"

var Module = fx.Module("generation",
	fx.Provide(NewClient),
)
