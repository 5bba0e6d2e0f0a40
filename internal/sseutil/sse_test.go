package sseutil

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterSetsHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteData(`{"hello":"world"}`))

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	require.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	require.Equal(t, "data: {\"hello\":\"world\"}\n\n", rec.Body.String())
}

func TestWriteDone(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	require.NoError(t, w.WriteDone())
	require.Equal(t, "data: [DONE]\n\n", rec.Body.String())
}

func TestParseStream(t *testing.T) {
	raw := "data: {\"a\":1}\n\ndata: [DONE]\n\n"
	events, err := ParseStream(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, `{"a":1}`, events[0].Data)
	require.Equal(t, "[DONE]", events[1].Data)
}
