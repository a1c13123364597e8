package azure

import (
	"context"
	"errors"
	"time"

	"github.com/tempopilot/coach-gateway/internal/domain"
	"github.com/tempopilot/coach-gateway/internal/logging"
	"github.com/tempopilot/coach-gateway/internal/tools"
)

// maxPrimaryAttempts is how many times the primary deployment is tried
// before switching to the fallback.
const maxPrimaryAttempts = 3

const (
	hintEndpointPath = "Endpoint should not include /openai/... path segments. Use the base resource URL only."
	hintVerifyConfig = "Verify the Azure endpoint, deployment name, and api-version in the gateway configuration."
)

// Failover drives attempts against the primary deployment with exponential
// backoff, then makes exactly one attempt against the fallback deployment.
type Failover struct {
	client      ChatStreamer
	primary     string
	fallback    string
	pathWarning bool
	log         *logging.Logger

	// sleep is replaceable in tests. It must honor context cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFailover creates the retry/fallback controller. fallback may be empty.
func NewFailover(client ChatStreamer, primary, fallback string, pathWarning bool, log *logging.Logger) *Failover {
	return &Failover{
		client:      client,
		primary:     primary,
		fallback:    fallback,
		pathWarning: pathWarning,
		log:         log.Sub("failover"),
		sleep:       sleepCtx,
	}
}

// Start attempts the primary deployment up to maxPrimaryAttempts times with
// 1s/2s backoff between attempts, then the fallback once. A 404 is recorded
// as a missing-deployment classification but does not short-circuit the
// retry loop, since transient routing issues can surface as 404 too. The
// returned Stream carries the deployment that won.
func (f *Failover) Start(ctx context.Context, msgs []domain.Message, defs []tools.Definition) (*Stream, error) {
	var (
		lastErr           error
		lastDeployment    = f.primary
		missingDeployment bool
	)

	note := func(deployment string, err error) {
		lastErr = err
		lastDeployment = deployment
		var ue *UpstreamError
		if errors.As(err, &ue) && ue.MissingDeployment() {
			missingDeployment = true
		}
	}

	for attempt := 1; attempt <= maxPrimaryAttempts; attempt++ {
		stream, err := f.client.StreamChat(ctx, f.primary, msgs, defs)
		if err == nil {
			return stream, nil
		}
		note(f.primary, err)
		f.log.Warn().
			Int("attempt", attempt).
			Str("deployment", f.primary).
			Err(err).
			Msg("primary attempt failed")

		if attempt < maxPrimaryAttempts {
			delay := time.Duration(1<<(attempt-1)) * time.Second // 1s, 2s
			if err := f.sleep(ctx, delay); err != nil {
				return nil, f.terminal(lastDeployment, lastErr, missingDeployment)
			}
		}
	}

	if f.fallback != "" {
		f.log.Info().Str("deployment", f.fallback).Msg("switching to fallback deployment")
		stream, err := f.client.StreamChat(ctx, f.fallback, msgs, defs)
		if err == nil {
			return stream, nil
		}
		note(f.fallback, err)
		f.log.Warn().Str("deployment", f.fallback).Err(err).Msg("fallback attempt failed")
	} else {
		f.log.Debug().Msg("no fallback deployment configured")
	}

	return nil, f.terminal(lastDeployment, lastErr, missingDeployment)
}

func (f *Failover) terminal(deployment string, lastErr error, missingDeployment bool) error {
	if missingDeployment {
		hint := hintVerifyConfig
		if f.pathWarning {
			hint = hintEndpointPath
		}
		return &ConfigError{Deployment: deployment, Hint: hint, Last: lastErr}
	}
	return &ExhaustedError{Last: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
