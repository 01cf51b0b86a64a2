package core

import (
	"context"
	"fmt"
	"time"
)

// ExecResult is the outcome of one script dispatch.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// TransportTimeout is returned by a Transport's Execute when the context
// deadline elapses before the dispatched process exits. The transport has
// already killed the process group by the time this surfaces.
type TransportTimeout struct {
	Machine string
	Elapsed time.Duration
}

func (e *TransportTimeout) Error() string {
	return fmt.Sprintf("transport: execute on %s timed out after %s", e.Machine, e.Elapsed)
}

// Transport dispatches generated scripts to a machine and, separately,
// copies a local file to that machine for "source"-based file resources.
// Execute is always subprocess-backed (bash locally, the ssh binary
// remotely, per §10.3); CopyFile is a distinct capability not bound by that
// requirement (§10.4).
type Transport interface {
	Execute(ctx context.Context, machine *Machine, script string) (ExecResult, error)
	CopyFile(ctx context.Context, machine *Machine, localPath, remotePath string) error
	Close() error
}
