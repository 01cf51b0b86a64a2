package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// hashTag is the algorithm prefix on every serialized digest. original_source
// tags digests "blake3:<hex>"; no BLAKE3 binding exists anywhere in the
// example pack, so this repository uses the standard library's SHA-256
// instead and keeps the same "<algo>:<hex>" serialization shape.
const hashTag = "sha256"

// HashBytes digests a byte slice.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hashTag + ":" + hex.EncodeToString(sum[:])
}

// HashString digests a string.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashFile digests a file's contents, streaming so large files never load
// fully into memory.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash file %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file %s: %w", path, err)
	}
	return hashTag + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// HashDirectory recursively digests a directory tree. Entries at each level
// are visited in sorted filename order so the result is independent of
// filesystem creation order; symlinks (file or directory) are skipped
// entirely.
func HashDirectory(root string) (string, error) {
	h := sha256.New()
	if err := hashDirInto(h, root, ""); err != nil {
		return "", err
	}
	return hashTag + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

func hashDirInto(h io.Writer, root, rel string) error {
	dir := filepath.Join(root, rel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("hash directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	byName := make(map[string]os.DirEntry, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
		byName[e.Name()] = e
	}
	sort.Strings(names)

	for _, name := range names {
		e := byName[name]
		entryRel := filepath.Join(rel, name)
		fullPath := filepath.Join(root, entryRel)

		info, err := os.Lstat(fullPath)
		if err != nil {
			return fmt.Errorf("hash directory entry %s: %w", fullPath, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}

		var contentHash string
		if e.IsDir() {
			sub := sha256.New()
			if err := hashDirInto(sub, root, entryRel); err != nil {
				return err
			}
			contentHash = hashTag + ":" + hex.EncodeToString(sub.Sum(nil))
		} else {
			contentHash, err = HashFile(fullPath)
			if err != nil {
				return err
			}
		}

		if _, err := h.Write([]byte(entryRel)); err != nil {
			return err
		}
		if _, err := h.Write([]byte{0x00}); err != nil {
			return err
		}
		if _, err := h.Write([]byte(contentHash)); err != nil {
			return err
		}
		if _, err := h.Write([]byte("\n")); err != nil {
			return err
		}
	}
	return nil
}

// CompositeHash combines several already-computed component strings into a
// single digest, each followed by a NUL separator, matching the encoding
// the planner uses for desired-state hashing (§4.5).
func CompositeHash(components ...string) string {
	h := sha256.New()
	for _, c := range components {
		h.Write([]byte(c))
		h.Write([]byte{0x00})
	}
	return hashTag + ":" + hex.EncodeToString(h.Sum(nil))
}
