package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
)

// UnmarshalJSON lets chatMessageContent decode from either a plain string
// or a structured parts array, matching the OpenAI chat-completion wire
// format's polymorphic "content" field (§6.1).
func (c *chatMessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Parts = nil
		return nil
	}

	var parts []chatMessagePart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("message content must be a string or a list of parts: %w", err)
	}
	c.Parts = parts
	return nil
}

// validateContentLength enforces the 1..100000 string-content bound for
// plain-string messages (§6.1); structured content is bounded instead by
// the cross-message total in openAIRequest.totalContentLength.
func (c chatMessageContent) validateContentLength() error {
	if c.Parts != nil {
		return nil
	}
	if len(c.Text) < 1 || len(c.Text) > 100000 {
		return gwerrors.NewValidationError("messages[].content", "length", "content length out of bounds [1,100000]", nil)
	}
	return nil
}
