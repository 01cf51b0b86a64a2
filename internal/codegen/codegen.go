// Package codegen renders one resolved resource into the idempotent shell
// script its transport dispatches — the sole place resource semantics turn
// into text a remote shell executes. Package installs and removals, service
// transitions, and mounts follow a check-then-act shape: query current
// state, act only if it differs. A content-based file is rewritten and
// renamed into place, chmod/chown are applied, and a service with
// restart_on is reloaded every time its script runs.
package codegen

import (
	"fmt"
	"strings"

	"github.com/forjar/forjar/internal/core"
)

const scriptPrelude = "set -euo pipefail\n"

const heredocSentinel = "FORJAR_EOF"

// shellQuote wraps a value in single quotes, escaping any embedded single
// quote the POSIX way ('\'' closes, escapes, reopens). This is what makes
// the generated scripts injection-safe regardless of what a resource's
// resolved parameters contain.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Renderer implements core.ScriptRenderer by dispatching on resource kind.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (Renderer) Render(r core.Resource) (string, error) {
	switch r.Kind {
	case core.KindPackage:
		return renderPackage(r)
	case core.KindFile:
		return renderFile(r)
	case core.KindService:
		return renderService(r)
	case core.KindMount:
		return renderMount(r)
	default:
		return "", fmt.Errorf("resource %s: no codegen for kind %q", r.ID, r.Kind)
	}
}
