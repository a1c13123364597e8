package gateway

import (
	"encoding/json"
	"net/http"
)

// apiError is the JSON envelope for every non-streaming error response.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error codes the gateway can return before a stream opens.
const (
	codeUnauthorized    = "unauthorized"
	codeNotTester       = "not_tester"
	codeFlagOff         = "flag_off"
	codeInvalidRequest  = "invalid_request"
	codePayloadTooLarge = "payload_too_large"
	codeConfigError     = "config_error"
	codeAzureConfig     = "azure_config"
	codeAzureError      = "azure_error"
	codeInternalError   = "internal_error"
)

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorDetails(w, status, code, message, "")
}

func writeErrorDetails(w http.ResponseWriter, status int, code, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Code: code, Message: message, Details: details})
}
