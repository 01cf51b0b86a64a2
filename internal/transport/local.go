// Package transport dispatches generated scripts to machines and copies
// source files to them, per the two-capability core.Transport interface.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/forjar/forjar/internal/core"
)

// LocalTransport runs scripts through a bash subprocess on the same host
// forjar itself runs on, and copies files with a plain filesystem copy.
// Even for the local case, Execute still shells out rather than calling
// the script's commands in-process — the script is the one artifact that
// behaves identically whichever transport dispatches it.
type LocalTransport struct{}

func NewLocalTransport() *LocalTransport {
	return &LocalTransport{}
}

// Execute runs the script in its own process group so a context deadline
// can kill the whole tree bash spawns, not just the bash process itself.
func (t *LocalTransport) Execute(ctx context.Context, machine *core.Machine, script string) (core.ExecResult, error) {
	start := time.Now()
	cmd := exec.Command("bash", "-s")
	cmd.Stdin = strings.NewReader(script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return core.ExecResult{Duration: time.Since(start)}, err
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		result := core.ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if err != nil {
			return result, err
		}
		return result, nil
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-waitErr
		result := core.ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
		return result, &core.TransportTimeout{Machine: machine.ID, Elapsed: time.Since(start)}
	}
}

func (t *LocalTransport) CopyFile(ctx context.Context, machine *core.Machine, localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open source %s: %w", localPath, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(remotePath), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	dst, err := os.OpenFile(remotePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open destination %s: %w", remotePath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", localPath, remotePath, err)
	}
	return dst.Sync()
}

func (t *LocalTransport) Close() error {
	return nil
}
