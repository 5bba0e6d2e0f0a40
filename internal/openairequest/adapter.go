// Package openairequest implements the OpenAIRequestAdapter (§4.7): it
// turns an inbound chat-completion request into a NormalizedRequest plus
// the SessionConfig reconstructed from conversation history.
package openairequest

import (
	"strings"

	"github.com/digitallysavvy/claude-code-gateway/internal/reqmodel"
	"github.com/digitallysavvy/claude-code-gateway/internal/sessionconfig"
)

// Message mirrors one chat-completion message. Content is either a plain
// string or a list of parts (text / image_url / file); exactly one of
// ContentText/ContentParts is populated by the HTTP decoding layer.
type Message struct {
	Role         string
	ContentText  string
	ContentParts []Part
}

// PartKind tags a structured content part.
type PartKind int

const (
	PartText PartKind = iota
	PartImageURL
	PartFile
)

// Part is one entry of a structured message content list.
type Part struct {
	Kind PartKind

	Text string // PartText

	ImageURL string // PartImageURL

	FileID     string // PartFile
	FileData   string // PartFile, base64
	FileName   string // PartFile
	FileMime   string // PartFile
}

// text renders a message's content as a single string, concatenating the
// text parts of a structured content list (§4.7 step 2).
func (m Message) text() string {
	if m.ContentParts == nil {
		return m.ContentText
	}
	var b strings.Builder
	for _, p := range m.ContentParts {
		if p.Kind == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func (m Message) attachments() []reqmodel.Attachment {
	var atts []reqmodel.Attachment
	for _, p := range m.ContentParts {
		switch p.Kind {
		case PartImageURL:
			atts = append(atts, reqmodel.Attachment{URL: p.ImageURL})
		case PartFile:
			atts = append(atts, reqmodel.Attachment{URL: p.FileID, Base64Data: p.FileData, MimeType: p.FileMime})
		}
	}
	return atts
}

// Adapt implements §4.7's full algorithm.
func Adapt(messages []Message) (reqmodel.NormalizedRequest, sessionconfig.Config) {
	start := 0
	systemPrompt := ""
	if len(messages) > 0 && messages[0].Role == "system" {
		systemPrompt = messages[0].text()
		start = 1
	}

	last := messages[len(messages)-1]
	lastText := last.text()

	var previous sessionconfig.Config
	for i := len(messages) - 2; i >= start; i-- {
		m := messages[i]
		if m.Role != "assistant" {
			continue
		}
		t := m.text()
		if sessionconfig.ContainsSessionID(t) {
			previous = sessionconfig.Parse(t)
			break
		}
	}

	current := sessionconfig.Parse(lastText)
	merged := sessionconfig.Merge(previous, current)

	prompt := sessionconfig.ExtractPrompt(lastText)

	normalized := reqmodel.NormalizedRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Attachments:  last.attachments(),
	}
	if merged.SessionID != nil {
		normalized.ResumeToken = *merged.SessionID
	}
	if merged.Workspace != nil {
		normalized.Workspace = *merged.Workspace
	}
	if merged.DangerouslySkipPerm != nil {
		normalized.SkipPermissions = *merged.DangerouslySkipPerm
	}
	if merged.AllowedTools != nil {
		normalized.AllowedTools = *merged.AllowedTools
	}
	if merged.DisallowedTools != nil {
		normalized.DisallowedTools = *merged.DisallowedTools
	}
	if merged.McpAllowedTools != nil {
		normalized.McpAllowedTools = *merged.McpAllowedTools
	}

	return normalized, merged
}
