// Command api-server serves the storefront API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	vireon "github.com/xenking/vireon/internal/app"
)

func main() {
	app.Run(run)
}

func run(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
	cfg, err := vireon.LoadConfig()
	if err != nil {
		return errors.Wrap(err, "config")
	}
	return vireon.Run(ctx, lg.Named("api"), m, cfg)
}
