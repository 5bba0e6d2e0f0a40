// Package mcpconfig loads the MCP server map the child program consults for
// mcp__<server>__<tool> permissions (§4.3, McpToolValidator) and validates
// requested tool names against it.
package mcpconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Server is an opaque descriptor for one configured MCP server. The
// gateway never talks to the server itself — that is the child program's
// job — it only needs the server's identifier to exist in the map.
type Server struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
}

// Registry is the process-wide, read-only-after-load map from server
// identifier to descriptor (§3 McpRegistry).
type Registry struct {
	Path    string
	Servers map[string]Server
}

// Load reads the MCP config JSON at path. A missing file is not an error:
// it yields an empty registry, since MCP support is entirely optional (no
// mcp-prefixed tool will ever validate, so --mcp-config is simply never
// appended).
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{Path: path, Servers: map[string]Server{}}, nil
		}
		return nil, fmt.Errorf("read mcp config %s: %w", path, err)
	}

	var doc struct {
		MCPServers map[string]Server `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse mcp config %s: %w", path, err)
	}
	if doc.MCPServers == nil {
		doc.MCPServers = map[string]Server{}
	}

	return &Registry{Path: path, Servers: doc.MCPServers}, nil
}

// Has reports whether server is a configured MCP server.
func (r *Registry) Has(server string) bool {
	if r == nil {
		return false
	}
	_, ok := r.Servers[server]
	return ok
}

// ServerOf extracts the <server> component of a "mcp__<server>__<tool>"
// tool name. Returns ("", false) if name does not have that shape.
func ServerOf(name string) (string, bool) {
	if !strings.HasPrefix(name, "mcp__") {
		return "", false
	}
	rest := strings.TrimPrefix(name, "mcp__")
	idx := strings.Index(rest, "__")
	if idx < 0 {
		return "", false
	}
	return rest[:idx], true
}

// ValidateTools returns the subsequence of requested whose <server> prefix
// is configured in r (§4.3 McpToolValidator). Order is preserved;
// duplicates are preserved (dedup is not required).
func (r *Registry) ValidateTools(requested []string) []string {
	valid := make([]string, 0, len(requested))
	for _, name := range requested {
		server, ok := ServerOf(name)
		if !ok {
			continue
		}
		if r.Has(server) {
			valid = append(valid, name)
		}
	}
	return valid
}
