package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/die-net/blockproxy/internal/dialer"
	"github.com/die-net/blockproxy/internal/metrics"
)

// Server accepts client connections and relays each request to its origin.
type Server struct {
	ctx       context.Context
	dialer    dialer.Dialer
	blocklist *Blocklist
	logger    *slog.Logger
	metrics   *metrics.Metrics
	buffers   *bufferPool
}

// NewServer returns a Server for cfg. Canceling ctx aborts pending dials
// and closes the connections of in-flight relays.
func NewServer(ctx context.Context, cfg Config) *Server {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Server{
		ctx:       ctx,
		dialer:    cfg.Dialer,
		blocklist: cfg.Blocklist,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		buffers:   newBufferPool(bufferSize),
	}
	if s.dialer == nil {
		s.dialer = dialer.NewDirectDialer(dialer.Config{})
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// Serve handles connections from ln until ln is closed. Other accept
// errors are logged and retried with backoff.
func (s *Server) Serve(ln net.Listener) error {
	var delay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}
			delay = min(max(2*delay, 5*time.Millisecond), time.Second)
			s.logger.Warn("accept error", "err", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		go func() {
			if err := s.handle(c); err != nil {
				s.logger.Debug("connection error", "remote", c.RemoteAddr().String(), "err", err)
			}
		}()
	}
}

// handle runs the whole lifecycle of one client connection. conn is closed
// on every return path.
func (s *Server) handle(conn net.Conn) error {
	defer conn.Close()

	s.metrics.ConnectionsInFlight.Inc()
	defer s.metrics.ConnectionsInFlight.Dec()

	buf := s.buffers.Get()
	defer s.buffers.Put(buf)

	// A single read; anything past it is never forwarded.
	n, err := conn.Read(buf)
	if n == 0 {
		s.metrics.Requests.WithLabelValues(metrics.OutcomeMalformed).Inc()
		if err == nil {
			err = ErrMalformedRequest
		}
		return fmt.Errorf("read request: %w", err)
	}

	req, err := ParseRequest(buf[:n])
	if err != nil {
		s.metrics.Requests.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return err
	}
	url := req.URL()

	if s.blocklist.Blocked(req.Host()) {
		s.metrics.Requests.WithLabelValues(metrics.OutcomeBlocked).Inc()
		s.logEvent(url, "403 Blocked")
		if err := writeForbidden(conn, url); err != nil {
			return fmt.Errorf("write forbidden %s: %w", url, err)
		}
		return nil
	}

	start := time.Now()
	up, err := s.dialer.DialContext(s.ctx, "tcp", req.DialAddress())
	s.metrics.DialDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.Requests.WithLabelValues(metrics.OutcomeDialFailed).Inc()
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer up.Close()

	s.metrics.Requests.WithLabelValues(metrics.OutcomeForwarded).Inc()

	if _, err := up.Write(req.Rewrite()); err != nil {
		return fmt.Errorf("write request %s: %w", url, err)
	}

	chunk := s.buffers.Get()
	defer s.buffers.Put(chunk)

	written, err := relayResponse(s.ctx, conn, up, chunk, func(first []byte) {
		if code, ok := findStatus(first); ok {
			s.logEvent(url, code)
			s.metrics.Responses.WithLabelValues(metrics.NormalizeStatus(code)).Inc()
		}
	})
	s.metrics.BytesRelayed.Add(float64(written))
	if err != nil {
		return fmt.Errorf("relay %s: %w", url, err)
	}
	return nil
}

func (s *Server) logEvent(url, event string) {
	s.logger.Info(url+" - "+event, "url", url, "event", event)
}
