/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/acronis/go-cachekit/log"
)

// Opts represents options for Service.
type Opts struct {
	ShutdownSignals []os.Signal
	ReloadSignals   []os.Signal

	// Reload is called on every reload signal. A failed reload is logged and the service keeps running.
	Reload func() error
}

// Service starts a unit and stops it gracefully on a shutdown signal or when the context is canceled.
type Service struct {
	Unit    Unit
	Logger  log.FieldLogger
	Opts    Opts
	Signals chan os.Signal
}

// New creates a new Service that stops on SIGINT or SIGTERM and calls reload (if not nil) on SIGHUP.
func New(logger log.FieldLogger, unit Unit, reload func() error) *Service {
	return NewWithOpts(logger, unit, Opts{
		ShutdownSignals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		ReloadSignals:   []os.Signal{syscall.SIGHUP},
		Reload:          reload,
	})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(logger log.FieldLogger, unit Unit, opts Opts) *Service {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Service{Unit: unit, Logger: logger, Opts: opts, Signals: make(chan os.Signal, 1)}
}

// Run starts the unit in a separate goroutine and blocks until it fails, a shutdown signal arrives
// or the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if mr, ok := s.Unit.(MetricsRegisterer); ok {
		mr.MustRegisterMetrics()
		defer mr.UnregisterMetrics()
	}

	fatalErr := make(chan error, 1)
	go s.Unit.Start(fatalErr)

	signal.Notify(s.Signals, append(append([]os.Signal(nil), s.Opts.ShutdownSignals...), s.Opts.ReloadSignals...)...)
	defer signal.Stop(s.Signals)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("context is canceled, service will be stopped")
			return s.stop()

		case err := <-fatalErr:
			s.Logger.Error("service fatal error", log.Error(err))
			return fmt.Errorf("fatal error: %w", err)

		case sig := <-s.Signals:
			if !s.isReloadSignal(sig) {
				s.Logger.Info("service got signal", log.String("signal", sig.String()))
				return s.stop()
			}
			s.Logger.Info("service got reload signal", log.String("signal", sig.String()))
			if s.Opts.Reload == nil {
				continue
			}
			if err := s.Opts.Reload(); err != nil {
				s.Logger.Error("service reload failed", log.Error(err))
			}
		}
	}
}

func (s *Service) stop() error {
	if err := s.Unit.Stop(true); err != nil {
		return fmt.Errorf("stop service gracefully: %w", err)
	}
	return nil
}

func (s *Service) isReloadSignal(sig os.Signal) bool {
	for _, rs := range s.Opts.ReloadSignals {
		if rs == sig {
			return true
		}
	}
	return false
}
