package openairequest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdaptSimpleUserMessage(t *testing.T) {
	messages := []Message{
		{Role: "user", ContentText: "Hi"},
	}
	normalized, _ := Adapt(messages)
	require.Equal(t, "Hi", normalized.Prompt)
	require.Empty(t, normalized.ResumeToken)
}

func TestAdaptExtractsSystemPrompt(t *testing.T) {
	messages := []Message{
		{Role: "system", ContentText: "be terse"},
		{Role: "user", ContentText: "Hi"},
	}
	normalized, _ := Adapt(messages)
	require.Equal(t, "be terse", normalized.SystemPrompt)
	require.Equal(t, "Hi", normalized.Prompt)
}

func TestAdaptReconstructsSessionFromHistory(t *testing.T) {
	messages := []Message{
		{Role: "user", ContentText: "first"},
		{Role: "assistant", ContentText: "session-id=xyz-789\nworkspace=proj\n"},
		{Role: "user", ContentText: "second request"},
	}
	normalized, cfg := Adapt(messages)
	require.Equal(t, "xyz-789", normalized.ResumeToken)
	require.Equal(t, "proj", normalized.Workspace)
	require.Equal(t, "second request", normalized.Prompt)
	require.Equal(t, "xyz-789", *cfg.SessionID)
}

func TestAdaptCurrentMessageOverridesHistory(t *testing.T) {
	messages := []Message{
		{Role: "assistant", ContentText: "session-id=xyz-789\nworkspace=old\n"},
		{Role: "user", ContentText: "workspace=new do the thing"},
	}
	normalized, _ := Adapt(messages)
	require.Equal(t, "xyz-789", normalized.ResumeToken)
	require.Equal(t, "new", normalized.Workspace)
}

func TestAdaptStopsAtFirstMatchingAssistantMessage(t *testing.T) {
	messages := []Message{
		{Role: "assistant", ContentText: "session-id=older-one\n"},
		{Role: "user", ContentText: "middle"},
		{Role: "assistant", ContentText: "session-id=newer-one\n"},
		{Role: "user", ContentText: "latest"},
	}
	normalized, _ := Adapt(messages)
	require.Equal(t, "newer-one", normalized.ResumeToken)
}

func TestAdaptExplicitPromptOverride(t *testing.T) {
	messages := []Message{
		{Role: "user", ContentText: `session-id=abc workspace=w prompt="do this instead"`},
	}
	normalized, _ := Adapt(messages)
	require.Equal(t, "do this instead", normalized.Prompt)
}

func TestAdaptStructuredContentConcatenatesTextParts(t *testing.T) {
	messages := []Message{
		{Role: "user", ContentParts: []Part{
			{Kind: PartText, Text: "look at this "},
			{Kind: PartImageURL, ImageURL: "https://example.com/a.png"},
			{Kind: PartText, Text: "image"},
		}},
	}
	normalized, _ := Adapt(messages)
	require.Equal(t, "look at this image", normalized.Prompt)
	require.Len(t, normalized.Attachments, 1)
	require.Equal(t, "https://example.com/a.png", normalized.Attachments[0].URL)
}

func TestAdaptAllowedToolsFromMiniLanguage(t *testing.T) {
	messages := []Message{
		{Role: "user", ContentText: `allowed-tools=["Read","Write"] do it`},
	}
	normalized, _ := Adapt(messages)
	require.Equal(t, []string{"Read", "Write"}, normalized.AllowedTools)
}
