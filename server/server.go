package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DebRC/Vortex-Layer-1.5/gateway"
	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/service"
	"github.com/DebRC/Vortex-Layer-1.5/store"
	"github.com/DebRC/Vortex-Layer-1.5/verifier"
)

type svc interface {
	Run(ctx context.Context) error
}

type Server struct {
	worker svc
	store  *store.Store
	cfg    Config

	closeLedger     func()
	metricsListener net.Listener
}

type newServerOptionFunc func(*newServerOptions)

type newServerOptions struct {
	ledger gateway.Gateway
}

// WithGateway replaces the JSON-RPC ledger client.
func WithGateway(g gateway.Gateway) newServerOptionFunc {
	return func(opts *newServerOptions) {
		opts.ledger = g
	}
}

func New(ctx context.Context, cfg Config, opts ...newServerOptionFunc) (*Server, error) {
	options := newServerOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := logging.FromContext(ctx)

	if _, err := os.Stat(cfg.DbDir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.DbDir, 0o700); err != nil {
			return nil, err
		}
	}

	v, err := verifier.New(ctx, cfg.Verifier)
	if err != nil {
		return nil, fmt.Errorf("creating verifier: %w", err)
	}

	ledger := options.ledger
	closeLedger := func() {}
	if ledger == nil {
		if err := cfg.Ledger.Validate(); err != nil {
			return nil, fmt.Errorf("invalid ledger config: %w", err)
		}
		client, err := gateway.Dial(ctx, cfg.Ledger)
		if err != nil {
			return nil, fmt.Errorf("connecting to the ledger: %w", err)
		}
		logger.Info("connected to the ledger", zap.Stringer("account", client.Account()))
		ledger = client
		closeLedger = client.Close
	}

	st, err := store.Open(ctx, cfg.DbDir)
	if err != nil {
		closeLedger()
		return nil, fmt.Errorf("opening proof store: %w", err)
	}

	worker, err := service.New(st, ledger, v, service.WithConfig(cfg.Service))
	if err != nil {
		closeLedger()
		return nil, errors.Join(fmt.Errorf("failed to create Service: %w", err), st.Close())
	}

	var metricsListener net.Listener
	if cfg.MetricsPort != nil {
		metricsListener, err = net.Listen("tcp", fmt.Sprintf(":%d", *cfg.MetricsPort))
		if err != nil {
			closeLedger()
			return nil, errors.Join(fmt.Errorf("failed to listen: %w", err), st.Close())
		}
	}

	return &Server{
		worker:          worker,
		store:           st,
		cfg:             cfg,
		closeLedger:     closeLedger,
		metricsListener: metricsListener,
	}, nil
}

func (s *Server) Close() error {
	var result *multierror.Error
	if s.metricsListener != nil {
		// Already closed when Start served on it.
		if err := s.metricsListener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			result = multierror.Append(result, fmt.Errorf("closing metrics listener: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing store: %w", err))
	}
	s.closeLedger()
	return result.ErrorOrNil()
}

// MetricsAddr returns the address the metrics endpoint listens on, nil if disabled.
func (s *Server) MetricsAddr() net.Addr {
	if s.metricsListener == nil {
		return nil
	}
	return s.metricsListener.Addr()
}

// Start runs the proof lifecycle until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	serverGroup, ctx := errgroup.WithContext(ctx)

	logger := logging.FromContext(ctx)

	logger.Info("starting proof lifecycle service")
	serverGroup.Go(func() error {
		return s.worker.Run(ctx)
	})

	var server *http.Server
	if s.metricsListener != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server = &http.Server{Handler: mux, ReadHeaderTimeout: time.Second * 5}
		serverGroup.Go(func() error {
			logger.Sugar().Infof("metrics server listening on %s", s.metricsListener.Addr())
			err := server.Serve(s.metricsListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}

	<-ctx.Done()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Sugar().Errorf("failed to shutdown metrics server: %s", err)
		}
	}
	err := serverGroup.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
