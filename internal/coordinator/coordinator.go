// Package coordinator implements the RequestCoordinator (§4.8): the
// per-request glue that resolves a workspace, builds and spawns a child
// supervisor, drives its event stream through the right writer, and
// guarantees the response and the supervisor's Registry entry are both
// cleaned up exactly once, on every exit path.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/digitallysavvy/claude-code-gateway/internal/attachments"
	"github.com/digitallysavvy/claude-code-gateway/internal/childproc"
	"github.com/digitallysavvy/claude-code-gateway/internal/config"
	"github.com/digitallysavvy/claude-code-gateway/internal/mcpconfig"
	"github.com/digitallysavvy/claude-code-gateway/internal/nativewriter"
	"github.com/digitallysavvy/claude-code-gateway/internal/openaicompat"
	"github.com/digitallysavvy/claude-code-gateway/internal/registry"
	"github.com/digitallysavvy/claude-code-gateway/internal/reqmodel"
	"github.com/digitallysavvy/claude-code-gateway/internal/sessionconfig"
	"github.com/digitallysavvy/claude-code-gateway/internal/sseutil"
	"github.com/digitallysavvy/claude-code-gateway/internal/telemetry"
	"github.com/digitallysavvy/claude-code-gateway/internal/workspace"
)

// Deps are the coordinator's process-wide collaborators.
type Deps struct {
	Workspace *workspace.Resolver
	MCP       *mcpconfig.Registry
	Registry  *registry.Registry
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *telemetry.Settings
}

// Coordinator implements handleNative/handleOpenAI (§4.8).
type Coordinator struct {
	deps Deps
}

// New constructs a Coordinator.
func New(deps Deps) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.DefaultSettings()
	}
	return &Coordinator{deps: deps}
}

// buildOptions turns a NormalizedRequest into spawn options, resolving the
// workspace directory first so a filesystem failure is reported before the
// response is hijacked (§7 Workspace error). Attachments, if any, are
// materialized into that same directory and their absolute paths appended
// to the prompt (§4.7 step 7: "the adapter only accumulates the resulting
// paths" — materializing them is the coordinator's job, since it is the
// one that knows the resolved workspace directory).
func (c *Coordinator) buildOptions(ctx context.Context, req reqmodel.NormalizedRequest) (childproc.Options, error) {
	dir, err := c.deps.Workspace.Resolve(req.Workspace)
	if err != nil {
		return childproc.Options{}, err
	}

	prompt := req.Prompt
	if len(req.Attachments) > 0 {
		paths, err := attachments.Materialize(ctx, dir, req.Attachments)
		if err != nil {
			return childproc.Options{}, err
		}
		if len(paths) > 0 {
			prompt = prompt + "\n\nAttachments:\n" + strings.Join(paths, "\n")
		}
	}

	args := childproc.BuildArgs(childproc.CommandOptions{
		ResumeToken:     req.ResumeToken,
		SkipPermissions: req.SkipPermissions,
		SystemPrompt:    req.SystemPrompt,
		AllowedTools:    req.AllowedTools,
		McpAllowedTools: req.McpAllowedTools,
		DisallowedTools: req.DisallowedTools,
		MCPConfigPath:   c.deps.Config.MCPConfigPath,
	}, c.deps.MCP)

	return childproc.Options{
		Command:           c.deps.Config.ClaudeExecutable,
		Args:              args,
		Dir:               dir,
		Stdin:             prompt,
		TotalTimeout:      c.deps.Config.TotalTimeout,
		InactivityTimeout: c.deps.Config.InactivityTimeout,
		KillGrace:         c.deps.Config.KillGrace,
		Telemetry:         c.deps.Telemetry,
	}, nil
}

// spawn starts the supervisor and registers it, returning the supervisor
// and a deregister func the caller must invoke exactly once on every exit
// path (§5 resource cleanup).
func (c *Coordinator) spawn(opts childproc.Options) (*childproc.Supervisor, func(), error) {
	sup, err := childproc.New(opts, c.deps.Logger)
	if err != nil {
		return nil, func() {}, err
	}

	id := fmt.Sprintf("%p", sup)
	c.deps.Registry.Insert(id, sup)
	deregister := func() { c.deps.Registry.Remove(id) }

	return sup, deregister, nil
}

// HandleNative implements handleNative: resolve workspace, spawn, stream
// raw JSON lines through NativeStreamWriter, guarantee closure.
func (c *Coordinator) HandleNative(ctx context.Context, w http.ResponseWriter, req reqmodel.NormalizedRequest) error {
	opts, err := c.buildOptions(ctx, req)
	if err != nil {
		return err
	}

	sw := sseutil.NewWriter(w)
	nw := nativewriter.New(sw)

	sup, deregister, err := c.spawn(opts)
	if err != nil {
		return nw.WriteError(err, nativewriter.NewRequestID())
	}
	defer deregister()

	for {
		select {
		case ev, ok := <-sup.Events():
			if !ok {
				return nil
			}
			if line := rawLineFor(ev); line != "" {
				if err := nw.WriteLine(line); err != nil {
					sup.Cancel()
					return err
				}
			}
			if ev.Kind == childproc.KindResultSuccess {
				return nil
			}

		case <-ctx.Done():
			sup.Cancel()
			return nil
		}
	}
}

// HandleOpenAI implements handleOpenAI: resolve workspace, spawn, stream
// events through the OpenAITranslator, always terminate with [DONE].
func (c *Coordinator) HandleOpenAI(ctx context.Context, w http.ResponseWriter, req reqmodel.NormalizedRequest, cfg sessionconfig.Config, showThinking bool, sliceSize int) error {
	opts, err := c.buildOptions(ctx, req)
	if err != nil {
		return err
	}

	sw := sseutil.NewWriter(w)
	tr := openaicompat.New(sw, cfg, openaicompat.Options{
		ShowThinking: showThinking,
		SliceSize:    sliceSize,
		Telemetry:    c.deps.Telemetry,
	})

	sup, deregister, err := c.spawn(opts)
	if err != nil {
		// Spawn failure is surfaced as an error chunk through the
		// translator rather than a pre-hijack status code (§7 ChildSpawn:
		// "surfaced through the writer as an error chunk"). The SSE
		// headers set by sseutil.NewWriter above go out with its first frame.
		return tr.HandleFatal(err.Error())
	}
	defer deregister()

	for {
		select {
		case ev, ok := <-sup.Events():
			if !ok {
				return tr.Close()
			}
			stop, err := tr.HandleEvent(ev)
			if err != nil {
				sup.Cancel()
				return err
			}
			if stop {
				return nil
			}

		case <-ctx.Done():
			sup.Cancel()
			return nil
		}
	}
}

// rawLineFor returns the bytes NativeStreamWriter forwards for ev. Every
// event carries its original NDJSON line except the synthetic
// KindTimeout, which has none to pass through.
func rawLineFor(ev childproc.Event) string {
	if ev.Kind == childproc.KindTimeout {
		return ""
	}
	return ev.RawLine
}
