package childproc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEventSystemInit(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"system","subtype":"init","session_id":"abc-123"}`))
	require.NoError(t, err)
	require.Equal(t, KindSystemInit, ev.Kind)
	require.Equal(t, "abc-123", ev.SessionID)
}

func TestParseEventAssistantContent(t *testing.T) {
	line := `{"type":"assistant","message":{"stop_reason":"tool_use","content":[
		{"type":"thinking","thinking":"let me check"},
		{"type":"text","text":"hello"},
		{"type":"tool_use","name":"Read","input":{"path":"a.go"}}
	]}}`
	ev, err := ParseEvent([]byte(line))
	require.NoError(t, err)
	require.Equal(t, KindAssistantContent, ev.Kind)
	require.Equal(t, "tool_use", ev.StopReason)
	require.Len(t, ev.Blocks, 3)
	require.Equal(t, BlockThinking, ev.Blocks[0].Kind)
	require.Equal(t, "let me check", ev.Blocks[0].Text)
	require.Equal(t, BlockText, ev.Blocks[1].Kind)
	require.Equal(t, "hello", ev.Blocks[1].Text)
	require.Equal(t, BlockToolUse, ev.Blocks[2].Kind)
	require.Equal(t, "Read", ev.Blocks[2].Name)
}

func TestParseEventUserToolResultString(t *testing.T) {
	line := `{"type":"user","message":{"content":[{"type":"tool_result","content":"file contents","is_error":false}]}}`
	ev, err := ParseEvent([]byte(line))
	require.NoError(t, err)
	require.Equal(t, KindUserToolResult, ev.Kind)
	require.Equal(t, "file contents", ev.ToolResultContent)
	require.False(t, ev.ToolResultIsError)
}

func TestParseEventUserToolResultBlocks(t *testing.T) {
	line := `{"type":"user","message":{"content":[{"type":"tool_result","content":[{"type":"text","text":"err: boom"}],"is_error":true}]}}`
	ev, err := ParseEvent([]byte(line))
	require.NoError(t, err)
	require.Equal(t, KindUserToolResult, ev.Kind)
	require.Equal(t, "err: boom", ev.ToolResultContent)
	require.True(t, ev.ToolResultIsError)
}

func TestParseEventResultSuccess(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"result","subtype":"success"}`))
	require.NoError(t, err)
	require.Equal(t, KindResultSuccess, ev.Kind)
}

func TestParseEventError(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"error","error":{"message":"boom"}}`))
	require.NoError(t, err)
	require.Equal(t, KindError, ev.Kind)
	require.Equal(t, "boom", ev.Message)
}

func TestParseEventUnknown(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"surprise"}`))
	require.NoError(t, err)
	require.Equal(t, KindUnknown, ev.Kind)
	require.Equal(t, "surprise", ev.UnknownType)
}

func TestParseEventMalformed(t *testing.T) {
	_, err := ParseEvent([]byte(`not json`))
	require.Error(t, err)
}
