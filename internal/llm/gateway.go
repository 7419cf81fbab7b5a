package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/omriShneor/engage_ai/internal/metrics"
	"github.com/omriShneor/engage_ai/internal/prompts"
)

// DefaultTimeout bounds a single backend call
const DefaultTimeout = 30 * time.Second

// ErrNoProvider is returned by Call when the gateway has no backend configured
var ErrNoProvider = errors.New("no provider configured")

// Gateway fronts exactly one backend. It never falls through to another
// backend on failure; callers decide on their own heuristic fallback.
// A Gateway holds no per-request state and is safe for concurrent use.
type Gateway struct {
	backend Backend
	timeout time.Duration
	system  string
	logger  *logrus.Logger
}

// NewGateway creates a gateway. backend may be nil.
func NewGateway(backend Backend, timeout time.Duration, logger *logrus.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gateway{
		backend: backend,
		timeout: timeout,
		system:  prompts.SystemPrompt,
		logger:  logger,
	}
}

// Call sends prompt to the active backend and returns its raw text
func (g *Gateway) Call(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.backend == nil {
		return "", ErrNoProvider
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.backend.Complete(ctx, g.system, prompt)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = "timeout"
			err = fmt.Errorf("%s call timed out after %s: %w", g.backend.Name(), g.timeout, err)
		}
	}
	metrics.BackendLatency.WithLabelValues(g.backend.Name(), status).Observe(elapsed.Seconds())

	if err != nil {
		g.logger.WithFields(logrus.Fields{
			"provider": g.backend.Name(),
			"status":   status,
			"elapsed":  elapsed.String(),
		}).WithError(err).Warn("Backend call failed")
		return "", err
	}

	return text, nil
}

// IsConfigured returns true if the gateway has an active backend
func (g *Gateway) IsConfigured() bool {
	return g != nil && g.backend != nil
}

// Provider returns the active backend name, or "" when unconfigured
func (g *Gateway) Provider() string {
	if !g.IsConfigured() {
		return ""
	}
	return g.backend.Name()
}
