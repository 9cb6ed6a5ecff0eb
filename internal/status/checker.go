// Package status probes registered servers for TCP reachability.
package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sirosfoundation/glados-registry/internal/domain"
)

// DefaultTimeout bounds a probe when no timeout is configured
const DefaultTimeout = 2 * time.Second

// DialFunc opens a connection. It matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Checker performs on-demand TCP connect probes. It holds no per-server state
// and is safe for concurrent use.
type Checker struct {
	timeout time.Duration
	dial    DialFunc
	logger  *zap.Logger
}

// NewChecker creates a checker whose probes default to timeout
func NewChecker(timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var dialer net.Dialer
	return &Checker{
		timeout: timeout,
		dial:    dialer.DialContext,
		logger:  logger,
	}
}

// SetDialFunc replaces the dialer, for testing
func (c *Checker) SetDialFunc(fn DialFunc) {
	c.dial = fn
}

// Timeout returns the default probe timeout
func (c *Checker) Timeout() time.Duration {
	return c.timeout
}

type dialResult struct {
	conn net.Conn
	err  error
}

// Check attempts a TCP connection to the server within timeout (the checker
// default when timeout <= 0). It always returns within the timeout plus
// scheduling slack, even if the dialer ignores cancellation. No retries.
func (c *Checker) Check(ctx context.Context, server *domain.Server, timeout time.Duration) domain.Verdict {
	if timeout <= 0 {
		timeout = c.timeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := server.Address()
	start := time.Now()

	done := make(chan dialResult, 1)
	go func() {
		conn, err := c.dial(probeCtx, "tcp", addr)
		done <- dialResult{conn: conn, err: err}
	}()

	select {
	case res := <-done:
		latency := time.Since(start)
		if res.err != nil {
			verdict := classify(probeCtx, res.err, timeout)
			verdict.Latency = latency
			c.logger.Debug("Server probe failed",
				zap.String("server_id", server.ID),
				zap.String("address", addr),
				zap.String("status", string(verdict.Status)),
				zap.Error(res.err))
			return verdict
		}
		if err := res.conn.Close(); err != nil {
			c.logger.Warn("Failed to close probe connection",
				zap.String("address", addr),
				zap.Error(err))
		}
		return domain.Verdict{Status: domain.LivenessOnline, Latency: latency}

	case <-probeCtx.Done():
		// The dialer did not honour cancellation; drop its result when it arrives.
		go func() {
			if res := <-done; res.conn != nil {
				_ = res.conn.Close()
			}
		}()
		verdict := classify(probeCtx, probeCtx.Err(), timeout)
		verdict.Latency = time.Since(start)
		return verdict
	}
}

// classify maps a dial failure onto a liveness verdict.
func classify(probeCtx context.Context, err error, timeout time.Duration) domain.Verdict {
	switch {
	case errors.Is(probeCtx.Err(), context.DeadlineExceeded):
		return domain.Verdict{
			Status: domain.LivenessUnknown,
			Reason: fmt.Sprintf("no response within %s", timeout),
		}
	case errors.Is(probeCtx.Err(), context.Canceled):
		return domain.Verdict{Status: domain.LivenessUnknown, Reason: "check cancelled"}
	case errors.Is(err, syscall.ECONNREFUSED):
		return domain.Verdict{Status: domain.LivenessOffline, Reason: "connection refused"}
	case errors.Is(err, syscall.EHOSTUNREACH):
		return domain.Verdict{Status: domain.LivenessOffline, Reason: "host unreachable"}
	case errors.Is(err, syscall.ENETUNREACH):
		return domain.Verdict{Status: domain.LivenessOffline, Reason: "network unreachable"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.Verdict{
			Status: domain.LivenessUnknown,
			Reason: fmt.Sprintf("no response within %s", timeout),
		}
	}
	return domain.Verdict{Status: domain.LivenessUnknown, Reason: err.Error()}
}
