// Package childproc supervises the coding agent's child process and
// classifies its line-delimited JSON stdout into the tagged ChildEvent
// union the writers and translator consume (§3, §4.4). It is grounded on
// the stdio transport pattern of launching a command with piped stdio and
// scanning newline-delimited JSON messages off its stdout.
package childproc

import (
	"encoding/json"
	"fmt"
)

// Kind tags a ChildEvent with which variant of the union it carries.
type Kind int

const (
	KindSystemInit Kind = iota
	KindAssistantContent
	KindUserToolResult
	KindResultSuccess
	KindError
	KindUnknown
	// KindTimeout is a synthetic event the supervisor manufactures itself
	// when a deadline fires (§4.4 step 2); it is not present in the
	// child's own wire protocol.
	KindTimeout
)

// BlockKind tags a ContentBlock with which variant it carries.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockThinking
	BlockToolUse
)

// ContentBlock is one entry of an AssistantContent event's ordered block
// list (§3 ContentBlock).
type ContentBlock struct {
	Kind  BlockKind
	Text  string          // Text, Thinking
	Name  string          // ToolUse
	Input json.RawMessage // ToolUse
}

// TimeoutKind distinguishes which deadline produced a KindTimeout event.
type TimeoutKind int

const (
	TimeoutTotal TimeoutKind = iota
	TimeoutInactivity
)

func (k TimeoutKind) String() string {
	if k == TimeoutTotal {
		return "total"
	}
	return "inactivity"
}

// Event is the tagged union of everything the supervisor can hand the
// writer/translator (§3 ChildEvent), plus the synthetic KindTimeout.
type Event struct {
	Kind Kind

	SessionID string // KindSystemInit

	Blocks     []ContentBlock // KindAssistantContent
	StopReason string         // KindAssistantContent

	ToolResultContent string // KindUserToolResult
	ToolResultIsError bool   // KindUserToolResult

	Message string // KindError

	UnknownType string // KindUnknown

	// RawLine is the original NDJSON line this event was parsed from, for
	// every kind except the synthetic KindTimeout. NativeStreamWriter
	// forwards it verbatim; the OpenAI translator never reads it.
	RawLine string

	Timeout TimeoutKind // KindTimeout
}

// rawEvent mirrors the child's NDJSON wire schema closely enough to
// dispatch on "type"/"subtype" before the fields are typed.
type rawEvent struct {
	Type    string          `json:"type"`
	Subtype string          `json:"subtype,omitempty"`
	Session string          `json:"session_id,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
	Error   *rawError       `json:"error,omitempty"`
}

type rawError struct {
	Message string `json:"message"`
}

type rawMessage struct {
	Content    []rawBlock `json:"content"`
	StopReason string     `json:"stop_reason,omitempty"`
}

type rawBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// ParseEvent classifies one NDJSON line from the child's stdout. A JSON
// parse failure is returned as an error; per §4.4 step 3 the caller must
// log and skip it rather than treat it as fatal. The returned event always
// carries the original line in RawLine, regardless of kind, so
// NativeStreamWriter can forward it verbatim.
func ParseEvent(line []byte) (Event, error) {
	ev, err := parseEvent(line)
	if err != nil {
		return Event{}, err
	}
	ev.RawLine = string(line)
	return ev, nil
}

func parseEvent(line []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, fmt.Errorf("parse child event: %w", err)
	}

	switch raw.Type {
	case "system":
		if raw.Subtype == "init" {
			return Event{Kind: KindSystemInit, SessionID: raw.Session}, nil
		}
		return Event{Kind: KindUnknown, UnknownType: raw.Type + "/" + raw.Subtype}, nil

	case "assistant":
		var msg rawMessage
		if len(raw.Message) > 0 {
			if err := json.Unmarshal(raw.Message, &msg); err != nil {
				return Event{}, fmt.Errorf("parse assistant message: %w", err)
			}
		}
		blocks := make([]ContentBlock, 0, len(msg.Content))
		for _, b := range msg.Content {
			switch b.Type {
			case "text":
				blocks = append(blocks, ContentBlock{Kind: BlockText, Text: b.Text})
			case "thinking":
				blocks = append(blocks, ContentBlock{Kind: BlockThinking, Text: b.Thinking})
			case "tool_use":
				blocks = append(blocks, ContentBlock{Kind: BlockToolUse, Name: b.Name, Input: b.Input})
			}
		}
		return Event{Kind: KindAssistantContent, Blocks: blocks, StopReason: msg.StopReason}, nil

	case "user":
		var msg rawMessage
		if len(raw.Message) > 0 {
			if err := json.Unmarshal(raw.Message, &msg); err != nil {
				return Event{}, fmt.Errorf("parse user message: %w", err)
			}
		}
		for _, b := range msg.Content {
			if b.Type == "tool_result" {
				return Event{
					Kind:              KindUserToolResult,
					ToolResultContent: contentToText(b.Content),
					ToolResultIsError: b.IsError,
				}, nil
			}
		}
		return Event{Kind: KindUnknown, UnknownType: raw.Type}, nil

	case "result":
		if raw.Subtype == "success" {
			return Event{Kind: KindResultSuccess}, nil
		}
		return Event{Kind: KindUnknown, UnknownType: raw.Type + "/" + raw.Subtype}, nil

	case "error":
		msg := ""
		if raw.Error != nil {
			msg = raw.Error.Message
		}
		return Event{Kind: KindError, Message: msg}, nil

	default:
		return Event{Kind: KindUnknown, UnknownType: raw.Type}, nil
	}
}

// contentToText renders a tool_result content field as text whether the
// child sent it as a plain string or as a structured content-block array.
func contentToText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []rawBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		out := ""
		for _, b := range blocks {
			if b.Type == "text" {
				out += b.Text
			}
		}
		return out
	}

	return string(raw)
}
