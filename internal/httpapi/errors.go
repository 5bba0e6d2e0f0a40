package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
)

// errorResponse is the pre-hijack (non-streaming) error body (§6.4).
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
	Details   any    `json:"details,omitempty"`
}

// renderError writes a pre-hijack JSON error response, mapping err to an
// HTTP status via gwerrors.StatusCode.
func renderError(w http.ResponseWriter, err error) {
	status, kind := gwerrors.StatusCode(err)

	body := errorResponse{Error: errorBody{
		Message:   err.Error(),
		Type:      string(kind),
		Code:      string(kind),
		RequestID: uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}}

	var ve *gwerrors.ValidationError
	if errors.As(err, &ve) {
		body.Error.Code = ve.Code
		body.Error.Details = map[string]any{"field": ve.Field, "value": ve.Value}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
