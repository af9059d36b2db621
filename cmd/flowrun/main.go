// Command flowrun serves the workflow execution API, or runs a single
// workflow file from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kbukum/flowrun/api"
	"github.com/kbukum/flowrun/bootstrap"
	"github.com/kbukum/flowrun/server"
	"github.com/kbukum/flowrun/workflow"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		code := 1
		var exit *ExitError
		if errors.As(err, &exit) {
			code = exit.Code
		}
		fmt.Fprintln(os.Stderr, "flowrun:", err)
		os.Exit(code)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, done, err := parseArgs(args, stderr)
	if err != nil || done {
		return err
	}

	if opts.command == "run" && opts.server != "" {
		return runRemote(ctx, opts, stdout, stderr)
	}

	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		return err
	}
	if opts.command == "run" {
		return runLocal(ctx, cfg, opts, stdout)
	}
	return serve(ctx, cfg)
}

// serve runs the HTTP API until a shutdown signal arrives.
func serve(ctx context.Context, cfg *Config) error {
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg, app.Logger, true)
	if err != nil {
		return err
	}

	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
		srv := server.New(cfg.Server, a.Logger, server.WithMetrics(eng.metrics))
		srv.ApplyDefaults(cfg.Name, a.Components.HealthAll)
		api.New(eng.coord,
			api.WithEvents(eng.events.Hub()),
			api.WithDefinitions(eng.defs),
			api.WithLogger(a.Logger),
		).Register(srv.GinEngine())

		eng.preflight(ctx, a.Logger)
		if err := a.RegisterComponent(eng.telemetry); err != nil {
			return err
		}
		if err := a.RegisterComponent(eng.events); err != nil {
			return err
		}
		return a.RegisterComponent(server.NewComponent(srv))
	})
	// Let in-flight runs finish before the components go down.
	app.OnStop(eng.coord.Wait)

	return app.Run(ctx)
}

// runLocal executes one workflow file in process and prints its snapshot.
// A run that stops on a failing node exits with status 1.
func runLocal(ctx context.Context, cfg *Config, opts *options, stdout io.Writer) error {
	def, err := workflow.LoadFile(opts.file)
	if err != nil {
		return err
	}

	// stdout carries the snapshot.
	cfg.Logging.Output = "stderr"
	app, err := bootstrap.NewApp(cfg, bootstrap.WithQuiet())
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg, app.Logger, false)
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(eng.telemetry); err != nil {
		return err
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		eng.preflight(ctx, app.Logger)
		ctx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()

		snap, err := eng.coord.Submit(ctx, &def.Graph)
		if err != nil {
			return err
		}
		if err := writeJSON(stdout, snap); err != nil {
			return err
		}
		return snapshotExit(snap)
	})
}

func snapshotExit(snap *workflow.Snapshot) error {
	if snap.Status != workflow.RunError {
		return nil
	}
	msg := "run " + snap.ID + " failed"
	if step, ok := snap.FailedStep(); ok {
		msg += " at node " + step.NodeID + ": " + step.Error
	}
	return &ExitError{Code: 1, Message: msg}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
