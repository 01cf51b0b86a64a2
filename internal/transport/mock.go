package transport

import (
	"context"
	"fmt"

	"github.com/forjar/forjar/internal/core"
)

// MockTransport records every dispatched script and copied file, and lets
// tests script canned failures per machine so executor tests can exercise
// stop_on_first vs continue_independent without touching a real shell.
type MockTransport struct {
	Results     map[string]core.ExecResult
	Errors      map[string]error
	Scripts     []string
	CopiedFiles map[string]string
	Closed      bool
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		Results:     make(map[string]core.ExecResult),
		Errors:      make(map[string]error),
		CopiedFiles: make(map[string]string),
	}
}

func (m *MockTransport) Execute(ctx context.Context, machine *core.Machine, script string) (core.ExecResult, error) {
	m.Scripts = append(m.Scripts, script)
	if err, ok := m.Errors[machine.ID]; ok {
		return core.ExecResult{}, err
	}
	if res, ok := m.Results[machine.ID]; ok {
		return res, nil
	}
	return core.ExecResult{ExitCode: 0}, nil
}

func (m *MockTransport) CopyFile(ctx context.Context, machine *core.Machine, localPath, remotePath string) error {
	m.CopiedFiles[fmt.Sprintf("%s:%s", machine.ID, remotePath)] = localPath
	return nil
}

func (m *MockTransport) Close() error {
	m.Closed = true
	return nil
}
