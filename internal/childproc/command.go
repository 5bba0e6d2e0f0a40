package childproc

import (
	"strings"

	"github.com/digitallysavvy/claude-code-gateway/internal/mcpconfig"
)

// CommandOptions is the normalized option set ChildCommandBuilder turns
// into an argument sequence (§4.2).
type CommandOptions struct {
	ResumeToken     string
	SkipPermissions bool
	SystemPrompt    string
	AllowedTools    []string
	McpAllowedTools []string
	DisallowedTools []string
	MCPConfigPath   string
}

// BuildArgs constructs the argument sequence for spawning the child,
// following the fixed ordering in §4.2. mcp is the server registry used to
// validate MCP-prefixed tool names; a nil/empty registry validates nothing.
func BuildArgs(opts CommandOptions, mcp *mcpconfig.Registry) []string {
	args := []string{"-p", "--verbose", "--output-format", "stream-json"}

	if opts.ResumeToken != "" {
		args = append(args, "--resume", opts.ResumeToken)
	}
	if opts.SkipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}
	if opts.SystemPrompt != "" {
		args = append(args, "--system-prompt", opts.SystemPrompt)
	}

	regular, mcpPartition := partitionTools(opts.AllowedTools, opts.McpAllowedTools)

	validatedMCP := mcp.ValidateTools(mcpPartition)
	if len(validatedMCP) > 0 {
		args = append(args, "--mcp-config", opts.MCPConfigPath)
	}

	allTools := append(append([]string{}, regular...), validatedMCP...)
	if len(allTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(allTools, ","))
	}

	if len(opts.DisallowedTools) > 0 {
		args = append(args, "--disallowedTools", strings.Join(opts.DisallowedTools, ","))
	}

	return args
}

// partitionTools splits the allowed-tools sequence into regular names and
// mcp__-prefixed names. McpAllowedTools is concatenated onto the allowed
// list before partitioning so either source can supply MCP tool names.
func partitionTools(allowed, mcpAllowed []string) (regular, mcpNames []string) {
	combined := make([]string, 0, len(allowed)+len(mcpAllowed))
	combined = append(combined, allowed...)
	combined = append(combined, mcpAllowed...)

	for _, name := range combined {
		if strings.HasPrefix(name, "mcp__") {
			mcpNames = append(mcpNames, name)
		} else {
			regular = append(regular, name)
		}
	}
	return regular, mcpNames
}
