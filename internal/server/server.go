// Package server runs an HTTP server until the context ends or a stop
// signal arrives, then shuts it down gracefully.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const ShutdownTimeout = 10 * time.Second

// Run serves srv on ln (or srv.Addr when ln is nil). On SIGINT, SIGTERM or
// ctx cancellation it calls each cleanup in order, then drains srv within
// ShutdownTimeout.
func Run(ctx context.Context, srv *http.Server, ln net.Listener, log logrus.FieldLogger, cleanup ...func()) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("http server listening")
		var err error
		if ln != nil {
			err = srv.Serve(ln)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("starting graceful shutdown")
		for _, f := range cleanup {
			f()
		}

		sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.WithError(err).Error("http server shutdown error")
			return err
		}
		log.Info("graceful shutdown completed")
		return nil
	})

	return g.Wait()
}
