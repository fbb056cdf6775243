package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"time"

	"github.com/go-faster/errors"
	"github.com/mdlayher/vsock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/host"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auctiond_requests_total",
		Help: "Requests handled by auctiond by type and status.",
	},
	[]string{"type", "status"},
)

// Server accepts one JSON request per connection and answers with one JSON
// response.
type Server struct {
	host        *host.Host
	logger      *zap.Logger
	maxWorkers  int
	readTimeout time.Duration
	allowMint   bool
	limiter     *rate.Limiter
}

// NewServer creates a server dispatching to h.
func NewServer(h *host.Host, cfg Config, logger *zap.Logger) *Server {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		host:        h,
		logger:      logger,
		maxWorkers:  cfg.MaxWorkers,
		readTimeout: cfg.ReadTimeout,
		allowMint:   cfg.AllowMint,
		limiter:     rate.NewLimiter(limit, burst),
	}
}

// Listen opens the configured listener.
func Listen(cfg Config) (net.Listener, error) {
	if cfg.Network == auctionapi.NetworkVsock {
		listener, err := vsock.Listen(cfg.VsockPort, nil)
		if err != nil {
			return nil, errors.Wrap(err, "create vsock listener")
		}
		return listener, nil
	}
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, errors.Wrap(err, "create tcp listener")
	}
	return listener, nil
}

// Serve accepts connections until ctx is done. It closes listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	semaphore := make(chan struct{}, s.maxWorkers)
	s.logger.Info("serving", zap.Stringer("addr", listener.Addr()), zap.Int("max_workers", s.maxWorkers))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("accept connection", zap.Error(err))
			continue
		}

		// Acquire worker slot, rejecting immediately when the pool is full.
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }()
				s.handleConnection(ctx, c)
			}(conn)
		default:
			s.logger.Info("no workers available, rejecting connection")
			requestsTotal.WithLabelValues("", "rejected").Inc()
			if err := conn.Close(); err != nil {
				s.logger.Error("close rejected connection", zap.Error(err))
			}
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered in handleConnection", zap.Any("panic", r))
		}
		if err := conn.Close(); err != nil {
			s.logger.Debug("close connection", zap.Error(err))
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		s.logger.Error("read request", zap.Error(err))
		return
	}

	var response auctionapi.Response
	var req auctionapi.Request
	if err := json.Unmarshal(buf.Bytes(), &req); err != nil {
		response = errorResponse(auctionapi.TypeError, errors.Wrapf(auctionapi.ErrBadRequest, "decode request: %v", err))
	} else if !s.limiter.Allow() {
		response = errorResponse(req.Type, auctionapi.ErrRateLimited)
	} else {
		response = s.dispatch(ctx, req)
	}

	status := "ok"
	if !response.Success {
		status = response.Error.Kind
	}
	requestsTotal.WithLabelValues(req.Type, status).Inc()

	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("encode response", zap.String("type", req.Type), zap.Error(err))
		return
	}
	s.logger.Debug("sent response", zap.String("type", req.Type), zap.String("status", status))
}
