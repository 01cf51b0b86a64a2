package codegen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forjar/forjar/internal/core"
)

// renderFile never embeds a "source"-based file's bytes into the script —
// that copy happens over the transport's separate CopyFile path (§10.4)
// before this script runs, so here it's only ever responsible for the
// containing directory and metadata. A "content"-based file is embedded
// directly via a single-quoted heredoc sentinel, written to a temporary
// path in the same directory and renamed over the target, so a reader
// never observes a partially written file. Content holding a line equal to
// the sentinel is rejected, and a trailing newline is added to content
// that lacks one.
func renderFile(r core.Resource) (string, error) {
	var b strings.Builder
	b.WriteString(scriptPrelude)
	path := shellQuote(r.Path)

	switch r.State {
	case "file":
		dir := shellQuote(filepath.Dir(r.Path))
		fmt.Fprintf(&b, "mkdir -p %s\n", dir)
		if r.Content != "" {
			for _, line := range strings.Split(r.Content, "\n") {
				if line == heredocSentinel {
					return "", fmt.Errorf("resource %s: content contains the heredoc sentinel line %s", r.ID, heredocSentinel)
				}
			}
			body := r.Content
			if !strings.HasSuffix(body, "\n") {
				body += "\n"
			}
			tmp := shellQuote(r.Path + ".forjar-tmp")
			fmt.Fprintf(&b, "cat > %s <<'%s'\n%s%s\n", tmp, heredocSentinel, body, heredocSentinel)
			writeOwnership(&b, r, tmp)
			fmt.Fprintf(&b, "mv -f %s %s\n", tmp, path)
		} else {
			writeOwnership(&b, r, path)
		}
		fmt.Fprintf(&b, "test -f %s\n", path)
	case "directory":
		fmt.Fprintf(&b, "mkdir -p %s\n", path)
		writeOwnership(&b, r, path)
		fmt.Fprintf(&b, "test -d %s\n", path)
	case "symlink":
		if r.Target == "" {
			return "", fmt.Errorf("resource %s: symlink requires target", r.ID)
		}
		dir := shellQuote(filepath.Dir(r.Path))
		fmt.Fprintf(&b, "mkdir -p %s\n", dir)
		fmt.Fprintf(&b, "ln -sfn %s %s\n", shellQuote(r.Target), path)
		fmt.Fprintf(&b, "test -L %s\n", path)
	case "absent":
		fmt.Fprintf(&b, "rm -rf %s\n", path)
		fmt.Fprintf(&b, "! test -e %s\n", path)
	default:
		return "", fmt.Errorf("resource %s: unsupported file state %q", r.ID, r.State)
	}
	return b.String(), nil
}

func writeOwnership(b *strings.Builder, r core.Resource, quotedPath string) {
	if r.Mode != "" {
		fmt.Fprintf(b, "chmod %s %s\n", shellQuote(r.Mode), quotedPath)
	}
	if r.Owner != "" || r.Group != "" {
		owner := r.Owner
		if r.Group != "" {
			owner = owner + ":" + r.Group
		}
		fmt.Fprintf(b, "chown %s %s\n", shellQuote(owner), quotedPath)
	}
}
