package codegen

import (
	"fmt"
	"strings"

	"github.com/forjar/forjar/internal/core"
)

// renderPackage grounds its three providers on what each package manager
// actually offers for a non-interactive idempotence check: dpkg -s for
// apt, `cargo install --list` for cargo, and pip show for pip (pip has no
// upstream forjar provider to follow — invented here, same shape as the
// other two).
func renderPackage(r core.Resource) (string, error) {
	var b strings.Builder
	b.WriteString(scriptPrelude)

	names := make([]string, len(r.Packages))
	for i, p := range r.Packages {
		names[i] = shellQuote(p)
	}
	joined := strings.Join(names, " ")

	switch r.State {
	case "present":
		switch r.Provider {
		case "apt":
			fmt.Fprintf(&b, "missing=\"\"\nfor pkg in %s; do\n  if ! dpkg -s \"$pkg\" >/dev/null 2>&1; then\n    missing=\"$missing $pkg\"\n  fi\ndone\nif [ -n \"$missing\" ]; then\n  DEBIAN_FRONTEND=noninteractive apt-get install -y $missing\nfi\n", joined)
			fmt.Fprintf(&b, "for pkg in %s; do\n  dpkg -s \"$pkg\" >/dev/null 2>&1\ndone\n", joined)
		case "cargo":
			fmt.Fprintf(&b, "for pkg in %s; do\n  if ! cargo install --list | grep -q \"^$pkg \"; then\n    cargo install \"$pkg\"\n  fi\ndone\n", joined)
			fmt.Fprintf(&b, "for pkg in %s; do\n  cargo install --list | grep -q \"^$pkg \"\ndone\n", joined)
		case "pip":
			fmt.Fprintf(&b, "for pkg in %s; do\n  if ! pip show \"$pkg\" >/dev/null 2>&1; then\n    pip install \"$pkg\"\n  fi\ndone\n", joined)
			fmt.Fprintf(&b, "for pkg in %s; do\n  pip show \"$pkg\" >/dev/null 2>&1\ndone\n", joined)
		default:
			return "", fmt.Errorf("resource %s: unsupported package provider %q", r.ID, r.Provider)
		}
	case "absent":
		switch r.Provider {
		case "apt":
			fmt.Fprintf(&b, "for pkg in %s; do\n  if dpkg -s \"$pkg\" >/dev/null 2>&1; then\n    DEBIAN_FRONTEND=noninteractive apt-get remove -y \"$pkg\"\n  fi\ndone\n", joined)
			fmt.Fprintf(&b, "for pkg in %s; do\n  ! dpkg -s \"$pkg\" >/dev/null 2>&1\ndone\n", joined)
		case "cargo":
			fmt.Fprintf(&b, "for pkg in %s; do\n  if cargo install --list | grep -q \"^$pkg \"; then\n    cargo uninstall \"$pkg\"\n  fi\ndone\n", joined)
			fmt.Fprintf(&b, "for pkg in %s; do\n  ! cargo install --list | grep -q \"^$pkg \"\ndone\n", joined)
		case "pip":
			fmt.Fprintf(&b, "for pkg in %s; do\n  if pip show \"$pkg\" >/dev/null 2>&1; then\n    pip uninstall -y \"$pkg\"\n  fi\ndone\n", joined)
			fmt.Fprintf(&b, "for pkg in %s; do\n  ! pip show \"$pkg\" >/dev/null 2>&1\ndone\n", joined)
		default:
			return "", fmt.Errorf("resource %s: unsupported package provider %q", r.ID, r.Provider)
		}
	default:
		return "", fmt.Errorf("resource %s: unsupported package state %q", r.ID, r.State)
	}
	return b.String(), nil
}
