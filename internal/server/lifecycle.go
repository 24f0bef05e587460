// Package server runs the battle server's listeners and tears them and their
// backing resources down in order on a signal or failure.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Service is a long-running component. Start blocks until the service stops.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// GRPCService serves a gRPC server on lis. Stop drains in-flight calls for
// up to grace before forcing the server down.
func GRPCService(srv *grpc.Server, lis net.Listener, grace time.Duration) Service {
	return &FuncService{
		StartFn: func() error { return srv.Serve(lis) },
		StopFn: func() {
			done := make(chan struct{})
			go func() {
				srv.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(grace):
				srv.Stop()
			}
		},
	}
}

// HTTPService serves srv on lis. Stop shuts it down within grace.
func HTTPService(srv *http.Server, lis net.Listener, grace time.Duration) Service {
	return &FuncService{
		StartFn: func() error {
			if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			ctx, cancel := context.WithTimeout(context.Background(), grace)
			defer cancel()
			_ = srv.Shutdown(ctx)
		},
	}
}

// Lifecycle starts services in the order they were added and stops them in
// reverse, then runs cleanup hooks in reverse registration order.
type Lifecycle struct {
	logger *zap.Logger

	mu       sync.Mutex
	services []namedService
	cleanups []namedCleanup
}

type namedService struct {
	name    string
	service Service
}

type namedCleanup struct {
	name string
	fn   func()
}

// NewLifecycle creates a Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	if logger == nil {
		panic("server.NewLifecycle: logger must not be nil")
	}
	return &Lifecycle{logger: logger}
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// OnShutdown registers fn to run after every service has stopped, e.g. to
// close a pool the services used.
func (l *Lifecycle) OnShutdown(name string, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanups = append(l.cleanups, namedCleanup{name: name, fn: fn})
}

// Run starts all services and blocks until SIGINT or SIGTERM, ctx
// cancellation, or a service failure.
//
// Postcondition: All services are stopped and all cleanups have run. The
// error of the first failed service is returned.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(runErr))
	case <-sigCtx.Done():
		if ctx.Err() != nil {
			l.logger.Info("context cancelled, shutting down")
		} else {
			l.logger.Info("received signal, shutting down")
		}
	}

	l.shutdown(services)
	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return runErr
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", ns.name))
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.mu.Lock()
	cleanups := append([]namedCleanup(nil), l.cleanups...)
	l.mu.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		l.logger.Debug("running cleanup", zap.String("cleanup", cleanups[i].name))
		cleanups[i].fn()
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
}
