package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/digitallysavvy/claude-code-gateway/internal/config"
	"github.com/digitallysavvy/claude-code-gateway/internal/coordinator"
	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
	"github.com/digitallysavvy/claude-code-gateway/internal/openairequest"
)

// handlers binds the two streaming endpoints to a Coordinator.
type handlers struct {
	coord *coordinator.Coordinator
	cfg   *config.Config
}

// handleNative implements POST /api/claude (§6.1): decode, validate,
// convert, and hand off to the coordinator. Every error here happens
// before the response is hijacked, so it is always rendered as a plain
// JSON error body.
func (h *handlers) handleNative(w http.ResponseWriter, r *http.Request) {
	var req nativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, gwerrors.NewValidationError("", "malformed_json", err.Error(), nil))
		return
	}
	if err := validate.Struct(req); err != nil {
		renderError(w, translateValidatorErr(err))
		return
	}
	if err := validateNoToolConflict(req.AllowedTools, req.DisallowedTools); err != nil {
		renderError(w, err)
		return
	}

	if err := h.coord.HandleNative(r.Context(), w, req.toNormalized()); err != nil {
		renderError(w, err)
	}
}

// handleOpenAI implements POST /v1/chat/completions (§6.1). Only
// streaming requests are supported (S6): stream must be true or absent
// and defaulted to true for this endpoint, since the gateway has no
// buffered-response code path at all.
func (h *handlers) handleOpenAI(w http.ResponseWriter, r *http.Request) {
	var req openAIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, gwerrors.NewValidationError("", "malformed_json", err.Error(), nil))
		return
	}
	if err := validate.Struct(req); err != nil {
		renderError(w, translateValidatorErr(err))
		return
	}
	if req.Stream != nil && !*req.Stream {
		renderError(w, gwerrors.ErrNotStreaming)
		return
	}
	if req.totalContentLength() > 100000 {
		renderError(w, gwerrors.NewValidationError("messages", "length", "combined message content exceeds 100000 characters", nil))
		return
	}
	for _, m := range req.Messages {
		if err := m.Content.validateContentLength(); err != nil {
			renderError(w, err)
			return
		}
	}

	normalized, cfg := openairequest.Adapt(req.toAdapterMessages())
	if err := validateNoToolConflict(normalized.AllowedTools, normalized.DisallowedTools); err != nil {
		renderError(w, err)
		return
	}

	err := h.coord.HandleOpenAI(r.Context(), w, normalized, cfg, h.cfg.ShowThinking, h.cfg.ChunkSliceSize)
	if err != nil {
		renderError(w, err)
	}
}

// translateValidatorErr wraps a go-playground/validator error in a
// *gwerrors.ValidationError (code "invalid_request", the validator's full
// message, no field name), since the HTTP layer classifies errors by type
// rather than by inspecting validator internals.
func translateValidatorErr(err error) error {
	return gwerrors.NewValidationError("", "invalid_request", err.Error(), nil)
}
