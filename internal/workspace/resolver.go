// Package workspace resolves and creates the per-request scratch directory
// the child process runs in (§4.1).
package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"syscall"

	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
)

// NameCharset matches the workspace-name field in both HTTP bodies (§6.1):
// up to 64 characters of letters, digits, underscore, and hyphen. The
// resolver assumes upstream validation already enforced this and does not
// re-check it, per §4.1.
var NameCharset = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Resolver produces absolute workspace directories rooted at a base path.
type Resolver struct {
	base string
}

// New returns a Resolver rooted at base (WORKSPACE_BASE_PATH or the
// process root).
func New(base string) *Resolver {
	return &Resolver{base: base}
}

// Resolve returns the absolute directory for name, creating it (and any
// missing parents) if absent. An empty name resolves to "<base>/shared_workspace".
func (r *Resolver) Resolve(name string) (string, error) {
	var dir string
	if name == "" {
		dir = filepath.Join(r.base, "shared_workspace")
	} else {
		dir = filepath.Join(r.base, "workspace", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", classify(dir, err)
	}

	return dir, nil
}

// classify maps a MkdirAll failure to one of the typed workspace error
// categories (§4.1: PermissionDenied, NotADirectory, DiskFull, Other).
// "already exists" is handled by MkdirAll itself (it never errors for an
// existing directory), so it never reaches here.
func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return gwerrors.NewWorkspaceError(gwerrors.WorkspacePermissionDenied, path, err)
	case errors.Is(err, syscall.ENOTDIR):
		return gwerrors.NewWorkspaceError(gwerrors.WorkspaceNotADirectory, path, err)
	case errors.Is(err, syscall.ENOSPC):
		return gwerrors.NewWorkspaceError(gwerrors.WorkspaceDiskFull, path, err)
	default:
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			switch pathErr.Err {
			case syscall.ENOTDIR:
				return gwerrors.NewWorkspaceError(gwerrors.WorkspaceNotADirectory, path, err)
			case syscall.ENOSPC:
				return gwerrors.NewWorkspaceError(gwerrors.WorkspaceDiskFull, path, err)
			case syscall.EACCES, syscall.EPERM:
				return gwerrors.NewWorkspaceError(gwerrors.WorkspacePermissionDenied, path, err)
			}
		}
		return gwerrors.NewWorkspaceError(gwerrors.WorkspaceOther, path, err)
	}
}
