// Package nativewriter implements the NativeStreamWriter (§4.5): a pure
// pass-through that re-serializes each child JSON line as one SSE frame
// and never emits [DONE].
package nativewriter

import (
	"encoding/json"
	"time"

	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
	"github.com/digitallysavvy/claude-code-gateway/internal/sseutil"
	"github.com/google/uuid"
)

// Writer forwards raw child stdout lines to the client as SSE frames.
type Writer struct {
	w *sseutil.Writer
}

// New wraps an sseutil.Writer.
func New(w *sseutil.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine emits one `data: <line>\n\n` frame, verbatim. The line is
// assumed to already be a single JSON value with no embedded newlines,
// which holds for every line the supervisor forwards (§4.4 step 3).
func (nw *Writer) WriteLine(line string) error {
	return nw.w.WriteData(line)
}

// errorEnvelope matches the streaming error shape in §6.4.
type errorEnvelope struct {
	Type  string      `json:"type"`
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteError emits the §6.4 streaming error envelope as a single data
// frame, used when the supervisor fails before or during the stream.
func (nw *Writer) WriteError(err error, requestID string) error {
	status, kind := gwerrors.StatusCode(err)
	_ = status

	env := errorEnvelope{
		Type: "error",
		Error: errorDetail{
			Message:   err.Error(),
			Type:      string(kind),
			Code:      string(kind),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			RequestID: requestID,
		},
	}
	payload, marshalErr := json.Marshal(env)
	if marshalErr != nil {
		return marshalErr
	}
	return nw.w.WriteData(string(payload))
}

// NewRequestID generates a request identifier for error envelopes.
func NewRequestID() string {
	return uuid.NewString()
}
