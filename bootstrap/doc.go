// Package bootstrap runs the service lifecycle: start components, run
// configure callbacks, log a startup summary, wait for a signal, then shut
// everything down within a grace period.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(server)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error { ... })
//	return app.Run(ctx)
package bootstrap
