// Package sessionconfig implements the session-config mini-language
// embedded in chat message text (§6.2), the SessionConfig entity it
// produces (§3), and the §6.3 session-info text block the OpenAI
// translator emits back to the client.
package sessionconfig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Config is the SessionConfig entity: every field is a pointer so "unset"
// and "explicitly empty" are distinguishable, which the rightward-merge
// operator (Merge) depends on.
type Config struct {
	SessionID           *string
	Workspace           *string
	DangerouslySkipPerm *bool
	AllowedTools        *[]string
	DisallowedTools     *[]string
	McpAllowedTools     *[]string
}

var (
	reSessionID  = regexp.MustCompile(`(?m)(^|\s)session-id=([A-Za-z0-9_-]+)`)
	reWorkspace  = regexp.MustCompile(`(?m)(^|\s)workspace=([A-Za-z0-9_-]+)`)
	reSkipPerm   = regexp.MustCompile(`(?m)(^|\s)dangerously-skip-permissions=(true|false)`)
	reAllowed    = regexp.MustCompile(`(?m)(^|\s)allowed-tools=(\[[^\]]*\])`)
	reDisallowed = regexp.MustCompile(`(?m)(^|\s)disallowed-tools=(\[[^\]]*\])`)
	reMcpAllowed = regexp.MustCompile(`(?m)(^|\s)mcp-allowed-tools=(\[[^\]]*\])`)
	rePrompt     = regexp.MustCompile(`(?m)(^|\s)prompt="((?:[^"\\]|\\.)*)"`)

	reArrayItem = regexp.MustCompile(`['"]([^'"]*)['"]`)

	// allFragments is every mini-language pattern, used to strip fragments
	// from a message when computing the fallback prompt (§4.7 step 6).
	allFragments = []*regexp.Regexp{reSessionID, reWorkspace, reSkipPerm, reAllowed, reDisallowed, reMcpAllowed, rePrompt}
)

// ContainsSessionID reports whether text carries a session-id= fragment,
// the marker OpenAIRequestAdapter's reverse scan looks for (§4.7 step 3).
func ContainsSessionID(text string) bool {
	return reSessionID.MatchString(text)
}

// Parse extracts every mini-language fragment present in text into a
// Config. Fields with no matching fragment are left nil.
func Parse(text string) Config {
	var c Config

	if m := reSessionID.FindStringSubmatch(text); m != nil {
		v := m[2]
		c.SessionID = &v
	}
	if m := reWorkspace.FindStringSubmatch(text); m != nil {
		v := m[2]
		c.Workspace = &v
	}
	if m := reSkipPerm.FindStringSubmatch(text); m != nil {
		v := m[2] == "true"
		c.DangerouslySkipPerm = &v
	}
	if m := reAllowed.FindStringSubmatch(text); m != nil {
		v := parseArray(m[2])
		c.AllowedTools = &v
	}
	if m := reDisallowed.FindStringSubmatch(text); m != nil {
		v := parseArray(m[2])
		c.DisallowedTools = &v
	}
	if m := reMcpAllowed.FindStringSubmatch(text); m != nil {
		v := parseArray(m[2])
		c.McpAllowedTools = &v
	}

	return c
}

func parseArray(raw string) []string {
	matches := reArrayItem.FindAllStringSubmatch(raw, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// ExtractPrompt implements §4.7 step 6: a quoted prompt="..." fragment
// wins outright; otherwise every mini-language fragment is stripped from
// text and the trimmed, whitespace-collapsed remainder is used, falling
// back to the original text if that remainder is empty.
func ExtractPrompt(text string) string {
	if m := rePrompt.FindStringSubmatch(text); m != nil {
		return strings.ReplaceAll(m[2], `\"`, `"`)
	}

	stripped := text
	for _, re := range allFragments {
		stripped = re.ReplaceAllString(stripped, "")
	}
	stripped = collapseWhitespace(stripped)
	if stripped == "" {
		return text
	}
	return stripped
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// Merge implements the rightward merge `previous ⊕ current` (§4.7 step 5):
// every field set in current replaces the corresponding field of previous.
func Merge(previous, current Config) Config {
	merged := previous
	if current.SessionID != nil {
		merged.SessionID = current.SessionID
	}
	if current.Workspace != nil {
		merged.Workspace = current.Workspace
	}
	if current.DangerouslySkipPerm != nil {
		merged.DangerouslySkipPerm = current.DangerouslySkipPerm
	}
	if current.AllowedTools != nil {
		merged.AllowedTools = current.AllowedTools
	}
	if current.DisallowedTools != nil {
		merged.DisallowedTools = current.DisallowedTools
	}
	if current.McpAllowedTools != nil {
		merged.McpAllowedTools = current.McpAllowedTools
	}
	return merged
}

// InfoText renders the §6.3 session-info text block: one line per set
// field, in the fixed order session-id, workspace,
// dangerously-skip-permissions, allowed-tools, disallowed-tools,
// mcp-allowed-tools, plus the given sessionId (always present — it comes
// from the child's SystemInit event, not the parsed config).
func InfoText(c Config, sessionID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "session-id=%s\n", sessionID)
	if c.Workspace != nil {
		fmt.Fprintf(&b, "workspace=%s\n", *c.Workspace)
	}
	if c.DangerouslySkipPerm != nil {
		fmt.Fprintf(&b, "dangerously-skip-permissions=%s\n", strconv.FormatBool(*c.DangerouslySkipPerm))
	}
	if c.AllowedTools != nil {
		fmt.Fprintf(&b, "allowed-tools=%s\n", formatArray(*c.AllowedTools))
	}
	if c.DisallowedTools != nil {
		fmt.Fprintf(&b, "disallowed-tools=%s\n", formatArray(*c.DisallowedTools))
	}
	if c.McpAllowedTools != nil {
		fmt.Fprintf(&b, "mcp-allowed-tools=%s\n", formatArray(*c.McpAllowedTools))
	}
	return b.String()
}

func formatArray(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = `"` + item + `"`
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
