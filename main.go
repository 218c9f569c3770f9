package main

import (
	"flag"

	"github.com/ghaggin/coursedesk/internal/app"
	"github.com/ghaggin/coursedesk/internal/config"
	"github.com/ghaggin/coursedesk/internal/shell"
	"github.com/ghaggin/coursedesk/internal/web"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	var mode = flag.String("mode", string(config.ModeWeb), "either web or shell")
	var path = flag.String("config", config.DefaultPath, "path to the yaml config file")
	flag.Parse()

	newConfig := func() (*config.Config, error) {
		return config.Load(*path)
	}

	deps := fx.Options(
		fx.Provide(
			zap.NewDevelopment,
			newConfig,
		),
		app.Module,
	)

	var a *fx.App
	switch config.Mode(*mode) {
	case config.ModeWeb:
		a = fx.New(
			deps,
			fx.Provide(web.New),
			fx.Invoke(web.RegisterHooks),
		)
	case config.ModeShell:
		a = fx.New(
			deps,
			fx.NopLogger,
			fx.Provide(shell.New),
			fx.Invoke(shell.RegisterHooks),
		)
	default:
		panic("unrecognized mode")
	}

	a.Run()
}
