package httpapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
	"github.com/digitallysavvy/claude-code-gateway/internal/openairequest"
	"github.com/digitallysavvy/claude-code-gateway/internal/reqmodel"
)

var validate = validator.New()

// toolNamePattern matches a single allowed/disallowed/mcp-allowed tool
// name (§6.1): letters, digits, dot, colon, underscore, hyphen.
const toolNamePattern = `[A-Za-z0-9.:_-]{1,128}`

// nativeRequest is the POST /api/claude body (§6.1).
type nativeRequest struct {
	Prompt                     string   `json:"prompt" validate:"required,min=1,max=100000"`
	SessionID                  string   `json:"session-id" validate:"omitempty,identifier"`
	Workspace                  string   `json:"workspace" validate:"omitempty,max=64,identifier"`
	SystemPrompt               string   `json:"system-prompt" validate:"omitempty,max=10000"`
	DangerouslySkipPermissions bool     `json:"dangerously-skip-permissions"`
	AllowedTools               []string `json:"allowed-tools" validate:"omitempty,max=100,dive,toolname"`
	DisallowedTools            []string `json:"disallowed-tools" validate:"omitempty,max=100,dive,toolname"`
	McpAllowedTools            []string `json:"mcp-allowed-tools" validate:"omitempty,max=100,dive,toolname"`
}

// toNormalized converts a validated nativeRequest into the shared
// NormalizedRequest entity. Tool-permission conflict (S4) is checked
// separately by validateNoToolConflict, before this is called.
func (r nativeRequest) toNormalized() reqmodel.NormalizedRequest {
	return reqmodel.NormalizedRequest{
		Prompt:          r.Prompt,
		ResumeToken:     r.SessionID,
		Workspace:       r.Workspace,
		SystemPrompt:    r.SystemPrompt,
		SkipPermissions: r.DangerouslySkipPermissions,
		AllowedTools:    r.AllowedTools,
		DisallowedTools: r.DisallowedTools,
		McpAllowedTools: r.McpAllowedTools,
	}
}

// validateNoToolConflict implements S4 / invariant 9: a tool may not
// appear in both allowed-tools and disallowed-tools.
func validateNoToolConflict(allowed, disallowed []string) error {
	disallowedSet := make(map[string]bool, len(disallowed))
	for _, t := range disallowed {
		disallowedSet[t] = true
	}
	for _, t := range allowed {
		if disallowedSet[t] {
			return gwerrors.NewValidationError(
				"allowed-tools/disallowed-tools",
				"conflicting_tool_permissions",
				"tool present in both allowed-tools and disallowed-tools",
				t,
			)
		}
	}
	return nil
}

// chatMessagePart is one entry of a structured chat message content list.
type chatMessagePart struct {
	Type     string `json:"type" validate:"required,oneof=text image_url file"`
	Text     string `json:"text"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url"`
	File *struct {
		FileID   string `json:"file_id"`
		FileData string `json:"file_data"`
		FileName string `json:"filename"`
	} `json:"file"`
}

// chatMessageContent decodes either a plain string or a structured list,
// matching the OpenAI chat-completion wire format's polymorphic content.
type chatMessageContent struct {
	Text  string
	Parts []chatMessagePart
}

type chatMessage struct {
	Role    string              `json:"role" validate:"required,oneof=system user assistant"`
	Content chatMessageContent  `json:"content" validate:"required"`
}

// openAIRequest is the POST /v1/chat/completions body (§6.1).
type openAIRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages" validate:"required,min=1,max=100,dive"`
	Stream      *bool         `json:"stream"`
	Temperature *float64      `json:"temperature" validate:"omitempty,min=0,max=2"`
	MaxTokens   *int          `json:"max_tokens" validate:"omitempty,min=1,max=1000000"`
}

func (r openAIRequest) toAdapterMessages() []openairequest.Message {
	out := make([]openairequest.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		am := openairequest.Message{Role: m.Role}
		if m.Content.Parts != nil {
			am.ContentParts = toAdapterParts(m.Content.Parts)
		} else {
			am.ContentText = m.Content.Text
		}
		out = append(out, am)
	}
	return out
}

func toAdapterParts(parts []chatMessagePart) []openairequest.Part {
	out := make([]openairequest.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			out = append(out, openairequest.Part{Kind: openairequest.PartText, Text: p.Text})
		case "image_url":
			url := ""
			if p.ImageURL != nil {
				url = p.ImageURL.URL
			}
			out = append(out, openairequest.Part{Kind: openairequest.PartImageURL, ImageURL: url})
		case "file":
			if p.File != nil {
				out = append(out, openairequest.Part{
					Kind:     openairequest.PartFile,
					FileID:   p.File.FileID,
					FileData: p.File.FileData,
					FileName: p.File.FileName,
				})
			}
		}
	}
	return out
}

// totalContentLength sums every message's string content, enforcing the
// 100000-character cross-message cap (§6.1).
func (r openAIRequest) totalContentLength() int {
	total := 0
	for _, m := range r.Messages {
		if m.Content.Parts == nil {
			total += len(m.Content.Text)
			continue
		}
		for _, p := range m.Content.Parts {
			total += len(p.Text)
		}
	}
	return total
}
