package openaicompat

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/digitallysavvy/claude-code-gateway/internal/childproc"
	"github.com/digitallysavvy/claude-code-gateway/internal/sessionconfig"
	"github.com/digitallysavvy/claude-code-gateway/internal/sseutil"
)

func newTestTranslator(t *testing.T, showThinking bool) (*Translator, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	w := sseutil.NewWriter(rec)
	fixed := time.Unix(1700000000, 0)
	tr := New(w, sessionconfig.Config{}, Options{
		ShowThinking: showThinking,
		SliceSize:    100,
		Now:          func() time.Time { return fixed },
	})
	return tr, rec
}

func parseChunks(t *testing.T, body string) []Chunk {
	t.Helper()
	events, err := sseutil.ParseStream(strings.NewReader(body))
	require.NoError(t, err)
	var chunks []Chunk
	for _, ev := range events {
		if ev.Data == "[DONE]" {
			continue
		}
		var c Chunk
		require.NoError(t, json.Unmarshal([]byte(ev.Data), &c))
		chunks = append(chunks, c)
	}
	return chunks
}

func TestTranslatorSimpleSuccess(t *testing.T) {
	tr, rec := newTestTranslator(t, false)

	stop, err := tr.HandleEvent(childproc.Event{Kind: childproc.KindSystemInit, SessionID: "abc"})
	require.NoError(t, err)
	require.False(t, stop)

	stop, err = tr.HandleEvent(childproc.Event{
		Kind:       childproc.KindAssistantContent,
		StopReason: "end_turn",
		Blocks:     []childproc.ContentBlock{{Kind: childproc.BlockText, Text: "Hello"}},
	})
	require.NoError(t, err)
	require.False(t, stop)

	stop, err = tr.HandleEvent(childproc.Event{Kind: childproc.KindResultSuccess})
	require.NoError(t, err)
	require.True(t, stop)

	body := rec.Body.String()
	require.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))

	chunks := parseChunks(t, body)
	require.NotEmpty(t, chunks)

	// invariant 1: exactly one role:"assistant" delta, and it precedes everything.
	roleCount := 0
	for i, c := range chunks {
		if c.Choices[0].Delta.Role == "assistant" {
			roleCount++
			require.Equal(t, 0, i, "role delta must be first chunk")
		}
	}
	require.Equal(t, 1, roleCount)

	// invariant: exactly one finish_reason != null chunk, and it is the last chunk.
	finishCount := 0
	for i, c := range chunks {
		if c.Choices[0].FinishReason != nil {
			finishCount++
			require.Equal(t, len(chunks)-1, i, "finish chunk must be last")
			require.Equal(t, "stop", *c.Choices[0].FinishReason)
		}
	}
	require.Equal(t, 1, finishCount)

	// session info must mention the session id before the "Hello" text appears.
	joined := ""
	for _, c := range chunks {
		joined += c.Choices[0].Delta.Content
	}
	require.Contains(t, joined, "session-id=abc")
	require.True(t, strings.Index(joined, "session-id=abc") < strings.Index(joined, "Hello"))
}

func TestTranslatorIgnoresSecondSystemInit(t *testing.T) {
	tr, rec := newTestTranslator(t, false)

	_, err := tr.HandleEvent(childproc.Event{Kind: childproc.KindSystemInit, SessionID: "abc"})
	require.NoError(t, err)
	_, err = tr.HandleEvent(childproc.Event{Kind: childproc.KindSystemInit, SessionID: "xyz"})
	require.NoError(t, err)

	chunks := parseChunks(t, rec.Body.String())
	roleCount := 0
	sessionInfoCount := 0
	for _, c := range chunks {
		if c.Choices[0].Delta.Role == "assistant" {
			roleCount++
		}
		if strings.Contains(c.Choices[0].Delta.Content, "session-id=") {
			sessionInfoCount++
		}
	}
	require.Equal(t, 1, roleCount)
	require.Equal(t, 1, sessionInfoCount, "second SystemInit must not produce another session-info block")
}

func TestTranslatorThinkingEnvelopeClosesBeforeText(t *testing.T) {
	tr, rec := newTestTranslator(t, false)

	_, err := tr.HandleEvent(childproc.Event{Kind: childproc.KindSystemInit, SessionID: "abc"})
	require.NoError(t, err)

	_, err = tr.HandleEvent(childproc.Event{
		Kind:       childproc.KindAssistantContent,
		StopReason: "end_turn",
		Blocks: []childproc.ContentBlock{
			{Kind: childproc.BlockThinking, Text: "pondering"},
			{Kind: childproc.BlockText, Text: "done"},
		},
	})
	require.NoError(t, err)

	_, err = tr.HandleEvent(childproc.Event{Kind: childproc.KindResultSuccess})
	require.NoError(t, err)

	chunks := parseChunks(t, rec.Body.String())
	joined := ""
	for _, c := range chunks {
		joined += c.Choices[0].Delta.Content
	}
	require.Contains(t, joined, "```thinking")
	require.Contains(t, joined, "pondering")
	openIdx := strings.Index(joined, "```thinking")
	closeIdx := strings.Index(joined[openIdx+1:], "```")
	textIdx := strings.Index(joined, "done")
	require.Greater(t, closeIdx, -1)
	require.Greater(t, textIdx, openIdx)
}

func TestTranslatorFencedBacktickEscaping(t *testing.T) {
	tr, rec := newTestTranslator(t, false)
	_, err := tr.HandleEvent(childproc.Event{Kind: childproc.KindSystemInit, SessionID: "abc"})
	require.NoError(t, err)

	_, err = tr.HandleEvent(childproc.Event{
		Kind:       childproc.KindAssistantContent,
		StopReason: "end_turn",
		Blocks: []childproc.ContentBlock{
			{Kind: childproc.BlockThinking, Text: "has ``` inside"},
			{Kind: childproc.BlockText, Text: "final"},
		},
	})
	require.NoError(t, err)

	chunks := parseChunks(t, rec.Body.String())
	joined := ""
	for _, c := range chunks {
		joined += c.Choices[0].Delta.Content
	}
	require.NotContains(t, joined, "has ``` inside")
	require.Contains(t, joined, "has ` ` ` inside")
}

func TestTranslatorCloseWithoutResultSuccessNoSession(t *testing.T) {
	tr, rec := newTestTranslator(t, false)
	require.NoError(t, tr.Close())

	body := rec.Body.String()
	require.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))

	chunks := parseChunks(t, body)
	require.Equal(t, "assistant", chunks[0].Choices[0].Delta.Role)
	last := chunks[len(chunks)-1]
	require.Equal(t, "stop", *last.Choices[0].FinishReason)
}

func TestTranslatorCloseWithoutResultSuccessAfterSession(t *testing.T) {
	tr, rec := newTestTranslator(t, false)
	_, err := tr.HandleEvent(childproc.Event{Kind: childproc.KindSystemInit, SessionID: "abc"})
	require.NoError(t, err)

	require.NoError(t, tr.Close())

	chunks := parseChunks(t, rec.Body.String())
	finishCount := 0
	for _, c := range chunks {
		if c.Choices[0].FinishReason != nil {
			finishCount++
		}
	}
	require.Equal(t, 1, finishCount)
}

func TestTranslatorEventAfterResultSuccessCallerStopsForwarding(t *testing.T) {
	tr, _ := newTestTranslator(t, false)
	_, err := tr.HandleEvent(childproc.Event{Kind: childproc.KindSystemInit, SessionID: "abc"})
	require.NoError(t, err)
	stop, err := tr.HandleEvent(childproc.Event{Kind: childproc.KindResultSuccess})
	require.NoError(t, err)
	require.True(t, stop, "coordinator must stop forwarding once stop=true is returned")
}

func TestSliceContentUTF8Boundaries(t *testing.T) {
	s := strings.Repeat("日", 250)
	slices := SliceContent(s, 100)
	require.Len(t, slices, 3)
	require.Equal(t, 100, len([]rune(slices[0])))
	require.Equal(t, 100, len([]rune(slices[1])))
	require.Equal(t, 50, len([]rune(slices[2])))
}
