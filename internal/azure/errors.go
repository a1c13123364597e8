package azure

import (
	"fmt"
	"net/http"
)

// UpstreamError is one failed attempt against a deployment. Status is zero
// for transport-level failures (timeouts, connection errors).
type UpstreamError struct {
	Deployment string
	Status     int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("azure returned %d for deployment %q: %s", e.Status, e.Deployment, e.Body)
	}
	return fmt.Sprintf("azure request for deployment %q failed: %v", e.Deployment, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MissingDeployment reports whether this attempt looked like a misconfigured
// deployment name rather than transient unavailability.
func (e *UpstreamError) MissingDeployment() bool {
	return e.Status == http.StatusNotFound
}

// ConfigError is the terminal outcome when any attempt hit a missing
// deployment. Hint carries operator remediation guidance.
type ConfigError struct {
	Deployment string
	Hint       string
	Last       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("azure deployment %q not found", e.Deployment)
}

func (e *ConfigError) Unwrap() error { return e.Last }

// ExhaustedError is the terminal outcome when all attempts failed without a
// configuration-class error.
type ExhaustedError struct {
	Last error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to get response from AI service: %v", e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
