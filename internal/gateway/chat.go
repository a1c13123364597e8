package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tempopilot/coach-gateway/internal/access"
	"github.com/tempopilot/coach-gateway/internal/azure"
	"github.com/tempopilot/coach-gateway/internal/domain"
	"github.com/tempopilot/coach-gateway/internal/logging"
	"github.com/tempopilot/coach-gateway/internal/prompt"
	"github.com/tempopilot/coach-gateway/internal/relay"
)

// handleChat runs the full chat pipeline: authentication, access gates,
// validation, prompt assembly, upstream start and the SSE relay. Every
// denial happens before the first byte of the stream.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(RequestID(r))

	userID, ok := s.authorize(w, r, log)
	if !ok {
		return
	}

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid JSON body")
		return
	}
	if status, msg, verr := validateRequest(req); verr != nil {
		code := codeInvalidRequest
		if status == http.StatusRequestEntityTooLarge {
			code = codePayloadTooLarge
		}
		writeError(w, status, code, msg)
		return
	}

	if msg, ok := s.configIncomplete(); ok {
		log.Error().Msg("azure configuration incomplete")
		writeError(w, http.StatusInternalServerError, codeConfigError, msg)
		return
	}

	msgs, err := prompt.Assemble(req.Kind, req.AvailabilityContext, req.Messages)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid kind parameter")
		return
	}

	log.Info().
		Str("userId", userID).
		Str("kind", string(req.Kind)).
		Int("messages", len(req.Messages)).
		Msg("chat request accepted")

	stream, err := s.starter.Start(r.Context(), msgs, s.registry.Definitions())
	if err != nil {
		s.writeUpstreamError(w, log, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Usage is recorded on every exit, abnormal ones included; the relay
	// returns whatever token counts it captured before failing.
	usage, runErr := s.relay.Run(r.Context(), stream, relay.NewEventWriter(w), req.AvailabilityContext)
	s.recordUsage(log, userID, req.Kind, usage)
	if runErr != nil {
		log.Warn().Err(runErr).Msg("relay ended abnormally")
	}
}

// authorize resolves the bearer token and applies both access gates. On
// denial the error response has been written and ok is false.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, log *logging.Logger) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing authorization header")
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	userID, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		if !errors.Is(err, access.ErrInvalidToken) {
			log.Error().Err(err).Msg("authentication lookup failed")
		}
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid token")
		return "", false
	}

	// Both gates fail closed: a store error denies like a false result.
	isTester, err := s.gate.IsTester(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("tester lookup failed")
	}
	if !isTester {
		log.Info().Str("userId", userID).Msg("denied: not in tester cohort")
		writeError(w, http.StatusForbidden, codeNotTester, "AI chat is only available to testers")
		return "", false
	}

	enabled, err := s.gate.FlagEnabled(r.Context(), s.cfg.Access.FeatureFlag)
	if err != nil {
		log.Error().Err(err).Msg("feature flag lookup failed")
	}
	if !enabled {
		log.Info().Str("userId", userID).Msg("denied: feature flag disabled")
		writeError(w, http.StatusForbidden, codeFlagOff, "AI chat is currently disabled")
		return "", false
	}

	return userID, true
}

// validateRequest maps validation failures to status and message.
func validateRequest(req domain.ChatRequest) (int, string, error) {
	err := req.Validate()
	switch {
	case err == nil:
		return 0, "", nil
	case errors.Is(err, domain.ErrInvalidKind):
		return http.StatusBadRequest, "Invalid kind parameter", err
	case errors.Is(err, domain.ErrNoMessages):
		return http.StatusBadRequest, "Messages array required", err
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "Message content exceeds maximum size", err
	default:
		return http.StatusBadRequest, err.Error(), err
	}
}

// configIncomplete reports a per-request config failure message, keeping the
// endpoint honest even when startup validation was skipped.
func (s *Server) configIncomplete() (string, bool) {
	if s.cfg.Azure.Endpoint == "" || s.cfg.Azure.APIKey == "" {
		return "Azure OpenAI configuration incomplete", true
	}
	if s.cfg.Azure.Deployment == "" {
		return "Primary Azure deployment not configured", true
	}
	return "", false
}

// writeUpstreamError maps a failed upstream start to its terminal JSON error.
func (s *Server) writeUpstreamError(w http.ResponseWriter, log *logging.Logger, err error) {
	var cfgErr *azure.ConfigError
	if errors.As(err, &cfgErr) {
		log.Error().Err(err).Msg("azure deployment misconfigured")
		writeErrorDetails(w, http.StatusInternalServerError, codeAzureConfig,
			"Azure deployment '"+cfgErr.Deployment+"' not found", cfgErr.Hint)
		return
	}

	var exhausted *azure.ExhaustedError
	if errors.As(err, &exhausted) {
		log.Error().Err(err).Msg("all upstream attempts failed")
		details := ""
		if exhausted.Last != nil {
			details = exhausted.Last.Error()
		}
		writeErrorDetails(w, http.StatusServiceUnavailable, codeAzureError,
			"Failed to get response from AI service", details)
		return
	}

	log.Error().Err(err).Msg("unexpected upstream failure")
	writeError(w, http.StatusInternalServerError, codeInternalError, "An unexpected error occurred")
}

// recordUsage writes the accounting row. Failures are logged, never
// surfaced; the stream has already terminated for the client.
func (s *Server) recordUsage(log *logging.Logger, userID string, kind domain.Kind, usage domain.Usage) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := domain.UsageRecord{
		UserID:    userID,
		Kind:      kind,
		TokensIn:  usage.TokensIn,
		TokensOut: usage.TokensOut,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		log.Error().Err(err).Msg("failed to log usage")
		return
	}
	log.Info().Int("in", usage.TokensIn).Int("out", usage.TokensOut).Msg("usage logged")
}
