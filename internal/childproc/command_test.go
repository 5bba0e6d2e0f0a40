package childproc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digitallysavvy/claude-code-gateway/internal/mcpconfig"
)

func TestBuildArgsMinimal(t *testing.T) {
	args := BuildArgs(CommandOptions{}, &mcpconfig.Registry{})
	require.Equal(t, []string{"-p", "--verbose", "--output-format", "stream-json"}, args)
}

func TestBuildArgsFullOptions(t *testing.T) {
	opts := CommandOptions{
		ResumeToken:     "abc-123",
		SkipPermissions: true,
		SystemPrompt:    "be terse",
		AllowedTools:    []string{"Read", "Write"},
		DisallowedTools: []string{"Bash"},
		MCPConfigPath:   "/etc/mcp.json",
	}
	args := BuildArgs(opts, &mcpconfig.Registry{})
	require.Equal(t, []string{
		"-p", "--verbose", "--output-format", "stream-json",
		"--resume", "abc-123",
		"--dangerously-skip-permissions",
		"--system-prompt", "be terse",
		"--allowedTools", "Read,Write",
		"--disallowedTools", "Bash",
	}, args)
}

func TestBuildArgsMcpToolsValidated(t *testing.T) {
	reg := &mcpconfig.Registry{Servers: map[string]mcpconfig.Server{"github": {}}}
	opts := CommandOptions{
		AllowedTools:    []string{"Read", "mcp__github__search_code", "mcp__unknown__read"},
		MCPConfigPath:   "/etc/mcp.json",
	}
	args := BuildArgs(opts, reg)
	require.Equal(t, []string{
		"-p", "--verbose", "--output-format", "stream-json",
		"--mcp-config", "/etc/mcp.json",
		"--allowedTools", "Read,mcp__github__search_code",
	}, args)
}

func TestBuildArgsNoMcpConfigWhenNoneValidate(t *testing.T) {
	reg := &mcpconfig.Registry{}
	opts := CommandOptions{
		AllowedTools:  []string{"mcp__unknown__read"},
		MCPConfigPath: "/etc/mcp.json",
	}
	args := BuildArgs(opts, reg)
	require.Equal(t, []string{"-p", "--verbose", "--output-format", "stream-json"}, args)
}

func TestBuildArgsMcpAllowedToolsMergedWithAllowed(t *testing.T) {
	reg := &mcpconfig.Registry{Servers: map[string]mcpconfig.Server{"fs": {}}}
	opts := CommandOptions{
		AllowedTools:    []string{"Read"},
		McpAllowedTools: []string{"mcp__fs__read"},
		MCPConfigPath:   "/etc/mcp.json",
	}
	args := BuildArgs(opts, reg)
	require.Equal(t, []string{
		"-p", "--verbose", "--output-format", "stream-json",
		"--mcp-config", "/etc/mcp.json",
		"--allowedTools", "Read,mcp__fs__read",
	}, args)
}
