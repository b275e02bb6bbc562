//go:build wireinject

package app

import (
	"context"

	"perpdesk/internal/config"

	"github.com/google/wire"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config, configPath string) (*App, error) {
	wire.Build(
		provideAppBuilder,
		wire.Bind(new(appBuilderDeps), new(*AppBuilder)),
		provideAppFromBuilder,
	)
	return nil, nil
}
