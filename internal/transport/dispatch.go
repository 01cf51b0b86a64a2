package transport

import "github.com/forjar/forjar/internal/core"

// ForMachine picks the local or SSH transport for one machine. Each
// machine gets its own transport instance since SSHTransport caches a
// single connection internally — callers should Close() it once that
// machine's apply is finished.
func ForMachine(machine *core.Machine) core.Transport {
	if machine.IsLocal() {
		return NewLocalTransport()
	}
	return NewSSHTransport()
}
