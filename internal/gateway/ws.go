package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tempopilot/coach-gateway/internal/access"
	"github.com/tempopilot/coach-gateway/internal/azure"
	"github.com/tempopilot/coach-gateway/internal/domain"
	"github.com/tempopilot/coach-gateway/internal/prompt"
	"github.com/tempopilot/coach-gateway/internal/relay"
)

// wsOpenTimeout bounds the wait for the client's opening frame.
const wsOpenTimeout = 10 * time.Second

// wsOpenFrame is the single frame a client sends after connecting. Browsers
// cannot set an Authorization header on a WebSocket, so the token travels in
// the frame instead.
type wsOpenFrame struct {
	Token   string             `json:"token"`
	Request domain.ChatRequest `json:"request"`
}

// wsEvent mirrors the SSE frames as JSON messages.
type wsEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// wsSink adapts a WebSocket connection to the relay sink.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Send(event string, payload any) error {
	return s.conn.WriteJSON(wsEvent{Event: event, Data: payload})
}

// handleChatWS serves the same chat pipeline over a WebSocket. One request
// per connection: open frame in, event stream out, then close.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(RequestID(r))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(256 * 1024)

	conn.SetReadDeadline(time.Now().Add(wsOpenTimeout))
	var open wsOpenFrame
	if err := conn.ReadJSON(&open); err != nil {
		s.wsDeny(conn, codeInvalidRequest, "Invalid open frame")
		return
	}
	conn.SetReadDeadline(time.Time{})

	userID, err := s.auth.Authenticate(r.Context(), open.Token)
	if err != nil {
		if !errors.Is(err, access.ErrInvalidToken) {
			log.Error().Err(err).Msg("authentication lookup failed")
		}
		s.wsDeny(conn, codeUnauthorized, "Invalid token")
		return
	}

	if ok, gerr := s.gate.IsTester(r.Context(), userID); gerr != nil || !ok {
		if gerr != nil {
			log.Error().Err(gerr).Str("userId", userID).Msg("tester lookup failed")
		}
		s.wsDeny(conn, codeNotTester, "AI chat is only available to testers")
		return
	}
	if ok, gerr := s.gate.FlagEnabled(r.Context(), s.cfg.Access.FeatureFlag); gerr != nil || !ok {
		if gerr != nil {
			log.Error().Err(gerr).Msg("feature flag lookup failed")
		}
		s.wsDeny(conn, codeFlagOff, "AI chat is currently disabled")
		return
	}

	req := open.Request
	if _, msg, verr := validateRequest(req); verr != nil {
		s.wsDeny(conn, codeInvalidRequest, msg)
		return
	}
	if msg, incomplete := s.configIncomplete(); incomplete {
		s.wsDeny(conn, codeConfigError, msg)
		return
	}

	msgs, err := prompt.Assemble(req.Kind, req.AvailabilityContext, req.Messages)
	if err != nil {
		s.wsDeny(conn, codeInvalidRequest, "Invalid kind parameter")
		return
	}

	stream, err := s.starter.Start(r.Context(), msgs, s.registry.Definitions())
	if err != nil {
		log.Error().Err(err).Msg("upstream start failed")
		s.wsDenyUpstream(conn, err)
		return
	}
	defer stream.Close()

	sink := &wsSink{conn: conn}
	usage, runErr := s.relay.Run(r.Context(), stream, sink, req.AvailabilityContext)
	s.recordUsage(log, userID, req.Kind, usage)
	if runErr != nil {
		log.Warn().Err(runErr).Msg("websocket relay ended abnormally")
		return
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// wsDenyUpstream applies the same error taxonomy as the HTTP surface to a
// failed upstream start.
func (s *Server) wsDenyUpstream(conn *websocket.Conn, err error) {
	var cfgErr *azure.ConfigError
	if errors.As(err, &cfgErr) {
		s.wsDeny(conn, codeAzureConfig, "Azure deployment '"+cfgErr.Deployment+"' not found")
		return
	}
	var exhausted *azure.ExhaustedError
	if errors.As(err, &exhausted) {
		s.wsDeny(conn, codeAzureError, "Failed to get response from AI service")
		return
	}
	s.wsDeny(conn, codeInternalError, "An unexpected error occurred")
}

// wsDeny sends a terminal error event and closes the connection.
func (s *Server) wsDeny(conn *websocket.Conn, code, message string) {
	conn.WriteJSON(wsEvent{Event: relay.EventError, Data: relay.ErrorPayload{Code: code, Message: message}})
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code))
}
