/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cacheadmin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/log"
)

// Server serves the admin API over HTTP.
type Server struct {
	HTTPServer      *http.Server
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener net.Listener
	port     atomic.Int32
	done     chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewServer creates a new admin Server. If listener is nil, Start listens on cfg.Address.
func NewServer(cfg *Config, handler http.Handler, logger log.FieldLogger, listener net.Listener) *Server {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Server{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			WriteTimeout:      time.Duration(cfg.Timeouts.Write),
			ReadTimeout:       time.Duration(cfg.Timeouts.Read),
			ReadHeaderTimeout: time.Duration(cfg.Timeouts.ReadHeader),
			IdleTimeout:       time.Duration(cfg.Timeouts.Idle),
			Handler:           handler,
		},
		Logger:          logger,
		ShutdownTimeout: time.Duration(cfg.Timeouts.Shutdown),
		listener:        listener,
		done:            make(chan struct{}),
	}
}

// Start starts the server in a blocking way.
// It's supposed to be called in a separate goroutine. A fatal error is sent to the fatalError channel.
// Start returns immediately if the server has been already started or stopped.
func (s *Server) Start(fatalError chan<- error) {
	s.mu.Lock()
	if s.started || s.stopped {
		closeListener := !s.started
		s.mu.Unlock()
		if closeListener && s.listener != nil {
			_ = s.listener.Close()
		}
		return
	}
	s.started = true
	s.mu.Unlock()
	defer close(s.done)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("shutdown_timeout", s.ShutdownTimeout),
	)
	logger.Info("starting cache admin HTTP server...")

	var err error
	if s.listener == nil {
		if s.listener, err = net.Listen("tcp", s.HTTPServer.Addr); err != nil {
			logger.Error("cache admin HTTP server error", log.Error(err))
			fatalError <- err
			return
		}
	}
	if _, portStr, splitErr := net.SplitHostPort(s.listener.Addr().String()); splitErr == nil {
		if port, convErr := strconv.Atoi(portStr); convErr == nil {
			s.port.Store(int32(port))
		}
	}

	if err = s.HTTPServer.Serve(s.listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("cache admin HTTP server closed")
			return
		}
		logger.Error("cache admin HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops the server (gracefully or not) and waits until Start returns.
// If Start hasn't been called yet, it won't serve afterwards.
func (s *Server) Stop(gracefully bool) error {
	s.mu.Lock()
	s.stopped = true
	started := s.started
	s.mu.Unlock()
	if started {
		defer func() { <-s.done }()
	}

	if !gracefully {
		s.Logger.Info("closing cache admin HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("cache admin HTTP server closing error", log.Error(err))
			return err
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.Logger.Info("shutting down cache admin HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("cache admin HTTP server shutting down error", log.Error(err))
		return err
	}
	s.Logger.Info("cache admin HTTP server shut down")
	return nil
}

// Port returns the TCP port the server listens on, or 0 if it hasn't started yet.
func (s *Server) Port() int {
	return int(s.port.Load())
}
