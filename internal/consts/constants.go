// Package consts collects the fixed names and schema tags shared across
// the config, state, and event-log formats.
package consts

const (
	// SchemaVersion is the only accepted value of a config or lock document's
	// "version" field.
	SchemaVersion = "1.0"

	// Generator is recorded in every freshly created lock.
	Generator = "forjar"

	// LockFileName is the per-machine lock file, relative to the machine's
	// state directory.
	LockFileName = "state.lock.yaml"

	// LockTmpSuffix is appended to LockFileName while a write is in flight.
	LockTmpSuffix = ".tmp"

	// EventLogName is the per-machine append-only JSONL event log, relative
	// to the machine's state directory.
	EventLogName = "events.jsonl"

	// Localhost addresses that route through the local transport instead of SSH.
	AddrLocalhost  = "localhost"
	AddrLoopbackV4 = "127.0.0.1"

	// HashAlgo is the tag prefix used for every serialized digest ("sha256:...").
	HashAlgo = "sha256"

	// DefaultUser is used when a machine declares no explicit user.
	DefaultUser = "root"

	// DefaultShell is the interpreter both transports pipe generated scripts into.
	DefaultShell = "bash"
)
