// Package bootstrap runs a service's lifecycle: configure, start
// components in order, check readiness, wait, then drain and stop in
// reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return a.RegisterComponent(srv)
//	})
//	app.OnStop(coord.Wait)
//	err = app.Run(ctx)
//
// RunTask drives the same lifecycle around a finite function; the command
// line uses it for one-shot workflow runs.
package bootstrap
