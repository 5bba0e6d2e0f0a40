package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/digitallysavvy/claude-code-gateway/internal/childproc"
	"github.com/digitallysavvy/claude-code-gateway/internal/sessionconfig"
	"github.com/digitallysavvy/claude-code-gateway/internal/sseutil"
	"github.com/digitallysavvy/claude-code-gateway/internal/telemetry"
)

// Options configures a Translator for one request.
type Options struct {
	ShowThinking bool
	SliceSize    int
	// Now defaults to time.Now; overridable so tests can pin "created".
	Now func() time.Time
	// Telemetry configures the span recorded around Translator
	// construction. Nil disables tracing.
	Telemetry *telemetry.Settings
}

// Translator implements the OpenAI chat-completion stream transcoder
// (§4.6): it consumes childproc.Events and emits OpenAIChunk SSE frames
// through an sseutil.Writer, maintaining the thinking-envelope state
// machine across the whole response.
type Translator struct {
	w   *sseutil.Writer
	cfg sessionconfig.Config
	opt Options

	messageID   string
	fingerprint string

	inThinking     bool
	sessionEmitted bool
	finishEmitted  bool
}

// New constructs a Translator. messageId and fingerprint are captured once
// here, per §4.6.1.
func New(w *sseutil.Writer, cfg sessionconfig.Config, opt Options) *Translator {
	if opt.SliceSize <= 0 {
		opt.SliceSize = 100
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	millis := opt.Now().UnixMilli()
	messageID := fmt.Sprintf("chatcmpl-%d", millis)

	_, span := telemetry.GetTracer(opt.Telemetry).Start(context.Background(), "openaicompat.translator.construct",
		telemetrySpanAttrs(messageID)...)
	defer span.End()

	return &Translator{
		w:           w,
		cfg:         cfg,
		opt:         opt,
		messageID:   messageID,
		fingerprint: fmt.Sprintf("fp_%s", strconv.FormatInt(millis, 36)),
	}
}

func telemetrySpanAttrs(messageID string) []trace.SpanStartOption {
	return []trace.SpanStartOption{trace.WithAttributes(
		attribute.String("openaicompat.message_id", messageID),
	)}
}

// HandleEvent processes one child event, writing zero or more SSE frames.
// stop reports that the translator has seen ResultSuccess and the caller
// (the coordinator) must stop forwarding further events to this response.
func (t *Translator) HandleEvent(ev childproc.Event) (stop bool, err error) {
	switch ev.Kind {
	case childproc.KindSystemInit:
		return false, t.handleSystemInit(ev)
	case childproc.KindAssistantContent:
		return false, t.handleAssistantContent(ev)
	case childproc.KindUserToolResult:
		return false, t.handleUserToolResult(ev)
	case childproc.KindResultSuccess:
		return true, t.handleResultSuccess()
	case childproc.KindError:
		return false, t.handleError(ev)
	case childproc.KindTimeout:
		return false, t.handleTimeout(ev)
	default:
		return false, t.handleUnknown(ev)
	}
}

// HandleFatal finalizes the response for an error that prevents the child
// process from ever producing events at all (e.g. ChildSpawn, §7): it
// emits the role chunk if no session was ever opened, then the error
// message as the single finish-carrying chunk, then [DONE]. It must be
// the only thing the caller does with this Translator — never call
// HandleEvent or Close afterward.
func (t *Translator) HandleFatal(message string) error {
	if t.inThinking {
		if err := t.closeThinking(); err != nil {
			return err
		}
	}
	if !t.sessionEmitted {
		if err := t.emitRole(); err != nil {
			return err
		}
	}
	if err := t.emitContentChunks(t.wrapBody(message), true); err != nil {
		return err
	}
	return t.w.WriteDone()
}

// Close finalizes the response for a channel close that never produced a
// ResultSuccess event (§4.6.3 "on channel close without ResultSuccess").
// Call it at most once, and not after HandleEvent returned stop=true: that
// path has already written [DONE], and Close would write it a second time.
func (t *Translator) Close() error {
	if t.inThinking {
		if err := t.closeThinking(); err != nil {
			return err
		}
	}

	if !t.sessionEmitted {
		if err := t.emitRole(); err != nil {
			return err
		}
		if err := t.emitContentChunks("No response was received from the child process.", true); err != nil {
			return err
		}
	} else if !t.finishEmitted {
		if err := t.emitChunk(Delta{}, true); err != nil {
			return err
		}
	}

	return t.w.WriteDone()
}

func (t *Translator) handleSystemInit(ev childproc.Event) error {
	if t.sessionEmitted {
		return nil
	}
	t.sessionEmitted = true

	if err := t.emitRole(); err != nil {
		return err
	}

	info := sessionconfig.InfoText(t.cfg, ev.SessionID)
	if t.opt.ShowThinking {
		info = "<thinking>\n" + info
		t.inThinking = true
	}
	return t.emitContentChunks(info, false)
}

func (t *Translator) handleAssistantContent(ev childproc.Event) error {
	isFinal := ev.StopReason == "end_turn"
	textEmitted := false

	for i, block := range ev.Blocks {
		last := i == len(ev.Blocks)-1
		switch block.Kind {
		case childproc.BlockText:
			if t.inThinking {
				if err := t.closeThinking(); err != nil {
					return err
				}
			}
			textEmitted = true
			finishThis := last && isFinal
			if err := t.emitContentChunks("\n"+block.Text, finishThis); err != nil {
				return err
			}

		case childproc.BlockThinking:
			if !t.inThinking {
				if err := t.openThinking(); err != nil {
					return err
				}
			}
			if err := t.emitContentChunks(t.wrapBody(block.Text), false); err != nil {
				return err
			}

		case childproc.BlockToolUse:
			if !t.inThinking {
				if err := t.openThinking(); err != nil {
					return err
				}
			}
			body := fmt.Sprintf("Using %s: %s", block.Name, inputAsJSON(block.Input))
			if err := t.emitContentChunks(t.wrapBody(body), false); err != nil {
				return err
			}
		}
	}

	if isFinal && !textEmitted {
		if t.inThinking {
			if err := t.closeThinking(); err != nil {
				return err
			}
		}
		return t.emitChunk(Delta{}, true)
	}
	return nil
}

func (t *Translator) handleUserToolResult(ev childproc.Event) error {
	if !t.inThinking {
		if err := t.openThinking(); err != nil {
			return err
		}
	}
	prefix := "Tool Result: "
	if ev.ToolResultIsError {
		prefix = "Tool Error: "
	}
	return t.emitContentChunks(t.wrapBody(prefix+ev.ToolResultContent), false)
}

func (t *Translator) handleResultSuccess() error {
	if t.inThinking {
		if err := t.closeThinking(); err != nil {
			return err
		}
	}
	if !t.finishEmitted {
		if err := t.emitChunk(Delta{}, true); err != nil {
			return err
		}
	}
	return t.w.WriteDone()
}

func (t *Translator) handleError(ev childproc.Event) error {
	if t.inThinking {
		if err := t.closeThinking(); err != nil {
			return err
		}
	}
	return t.emitContentChunks(t.wrapBody(ev.Message), true)
}

func (t *Translator) handleTimeout(ev childproc.Event) error {
	if t.inThinking {
		if err := t.closeThinking(); err != nil {
			return err
		}
	}
	msg := fmt.Sprintf("Request terminated: %s timeout exceeded", ev.Timeout)
	return t.emitContentChunks(t.wrapBody(msg), true)
}

func (t *Translator) handleUnknown(ev childproc.Event) error {
	if t.inThinking {
		if err := t.closeThinking(); err != nil {
			return err
		}
	}
	dump := fmt.Sprintf("[debug] unrecognized event type=%q raw=%s", ev.UnknownType, ev.RawLine)
	return t.emitContentChunks(dump, false)
}

// openThinking/closeThinking implement the thinking-envelope markers.
// Thinking content is never suppressed regardless of ShowThinking — the
// flag only chooses natural-language markers vs. a fenced code block.
func (t *Translator) openThinking() error {
	t.inThinking = true
	if t.opt.ShowThinking {
		return t.emitContentChunks("<thinking>\n", false)
	}
	return t.emitContentChunks("```thinking\n", false)
}

func (t *Translator) closeThinking() error {
	t.inThinking = false
	if t.opt.ShowThinking {
		return t.emitContentChunks("</thinking>\n", false)
	}
	return t.emitContentChunks("```\n", false)
}

// wrapBody escapes nested triple-backticks when in fenced mode (§4.6.4);
// natural <thinking> mode needs no escaping since it uses no fence marker.
func (t *Translator) wrapBody(body string) string {
	if t.opt.ShowThinking {
		return body
	}
	return escapeFencedBackticks(body)
}

func escapeFencedBackticks(s string) string {
	return strings.ReplaceAll(s, "```", "` ` `")
}

func inputAsJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func (t *Translator) emitRole() error {
	return t.emitChunk(Delta{Role: "assistant"}, false)
}

// emitContentChunks slices text into SliceSize-rune pieces and emits one
// chunk per piece. finishLast attaches finish_reason:"stop" to the final
// slice only (§4.6.2); an empty text with finishLast still emits the lone
// finish-reason chunk with an empty delta.
func (t *Translator) emitContentChunks(text string, finishLast bool) error {
	slices := SliceContent(text, t.opt.SliceSize)
	if len(slices) == 0 {
		if finishLast {
			return t.emitChunk(Delta{}, true)
		}
		return nil
	}
	for i, s := range slices {
		finished := finishLast && i == len(slices)-1
		if err := t.emitChunk(Delta{Content: s}, finished); err != nil {
			return err
		}
	}
	return nil
}

func (t *Translator) emitChunk(delta Delta, finished bool) error {
	// Only the first finish-carrying chunk of a response keeps its
	// finish_reason; any later one is sent as an ordinary chunk.
	if finished && t.finishEmitted {
		finished = false
	}
	if finished {
		t.finishEmitted = true
	}
	chunk := newChunk(t.messageID, t.fingerprint, t.opt.Now().Unix(), delta, finished)
	payload, err := Marshal(chunk)
	if err != nil {
		return err
	}
	return t.w.WriteData(payload)
}
