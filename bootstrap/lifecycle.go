package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/flowrun/component"
	"github.com/kbukum/flowrun/logger"
)

// Run starts the service and blocks until SIGINT, SIGTERM or the end of
// ctx, then shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	return a.lifecycle(ctx, func(ctx context.Context) error {
		a.Logger.Info("Application ready, waiting for shutdown signal")
		<-ctx.Done()
		a.Logger.Info("Shutdown requested")
		return nil
	})
}

// RunTask starts the service, runs task and shuts down. A signal cancels
// the task's context. The task's error wins over a shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	return a.lifecycle(ctx, task)
}

func (a *App[C]) lifecycle(ctx context.Context, body func(context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.startup(ctx); err != nil {
		_ = a.shutdown()
		return err
	}
	err := body(ctx)
	if stopErr := a.shutdown(); err == nil {
		err = stopErr
	}
	return err
}

func (a *App[C]) startup(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	for _, fn := range a.configure {
		if err := fn(ctx, a); err != nil {
			return fmt.Errorf("configuration failed: %w", err)
		}
	}
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}

	a.Summary.SetStartupDuration(time.Since(began))
	if !a.quiet {
		a.Summary.Display(os.Stdout, a.Components)
	}
	return nil
}

// shutdown runs the OnStop steps, then stops the components, all within
// the graceful timeout.
func (a *App[C]) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()

	var errs []error
	for _, fn := range a.stopping {
		if err := fn(ctx); err != nil {
			a.Logger.Error("Stop step failed", logger.Fields(logger.FieldError, err.Error()))
			errs = append(errs, err)
		}
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, err)
	}
	a.Logger.Info("Application shutdown complete")
	return errors.Join(errs...)
}

// ReadyCheck fails when any registered component is not healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var bad []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		entry := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			entry += "(" + h.Message + ")"
		}
		bad = append(bad, entry)
	}
	if len(bad) > 0 {
		return fmt.Errorf("unhealthy components: %s", strings.Join(bad, ", "))
	}
	return nil
}
