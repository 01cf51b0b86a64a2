package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forjar/forjar/internal/consts"
)

// LockPath returns the path to a machine's lock file under the state
// directory, one subdirectory per machine per §6.2.
func LockPath(stateDir, machine string) string {
	return filepath.Join(stateDir, machine, consts.LockFileName)
}

// NewStateLock returns an empty lock document for a freshly-seen machine.
func NewStateLock(machine, hostname string) *StateLock {
	return &StateLock{
		Schema:      consts.SchemaVersion,
		Machine:     machine,
		Hostname:    hostname,
		Generator:   consts.Generator,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Resources:   NewOrderedMap[ResourceLock](),
	}
}

// LoadStateLock reads a machine's lock file, returning (nil, nil) if it
// doesn't exist yet — a missing lock is not an error, it means every
// resource on that machine plans as CREATE.
func LoadStateLock(stateDir, machine string) (*StateLock, error) {
	path := LockPath(stateDir, machine)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lock %s: %w", path, err)
	}
	var lock StateLock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parse lock %s: %w", path, err)
	}
	if lock.Resources == nil {
		lock.Resources = NewOrderedMap[ResourceLock]()
	}
	return &lock, nil
}

// SaveStateLock writes the lock document atomically: serialize, write to a
// sibling temp file, fsync the temp file, rename over the target, then
// fsync the containing directory so the rename itself is durable. This is
// stricter than a plain write+rename — spec.md calls for durability across
// the rename, not just the write.
func SaveStateLock(stateDir string, lock *StateLock) error {
	dir := filepath.Join(stateDir, lock.Machine)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir %s: %w", dir, err)
	}

	data, err := yaml.Marshal(lock)
	if err != nil {
		return fmt.Errorf("marshal lock for %s: %w", lock.Machine, err)
	}

	target := filepath.Join(dir, consts.LockFileName)
	tmp := target + consts.LockTmpSuffix

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp lock %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp lock %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync temp lock %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp lock %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename lock into place %s: %w", target, err)
	}

	dirHandle, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open state dir for fsync %s: %w", dir, err)
	}
	defer dirHandle.Close()
	if err := dirHandle.Sync(); err != nil {
		return fmt.Errorf("fsync state dir %s: %w", dir, err)
	}
	return nil
}

// RecordSuccess sets or replaces a resource's lock entry after a converged
// apply. Per I5, this is the only way an entry is ever written — a failed
// resource's prior entry, if any, is left untouched.
func RecordSuccess(lock *StateLock, resourceID string, entry ResourceLock) {
	entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	lock.Resources.Set(resourceID, entry)
	lock.GeneratedAt = entry.Timestamp
}
