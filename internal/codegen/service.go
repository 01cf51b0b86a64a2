package codegen

import (
	"fmt"
	"strings"

	"github.com/forjar/forjar/internal/core"
)

// renderService checks is-active/is-enabled before acting so a converged
// service produces no-op script runs. restart_on doesn't get its own
// idempotence check — any resource it watches having changed is exactly
// what folds into the service's own desired hash (see planner.go), so by
// the time this script runs the planner has already decided the restart
// is warranted.
func renderService(r core.Resource) (string, error) {
	var b strings.Builder
	b.WriteString(scriptPrelude)
	name := shellQuote(r.Name)

	switch r.State {
	case "running":
		fmt.Fprintf(&b, "if ! systemctl is-active --quiet %s; then\n  systemctl start %s\nfi\n", name, name)
	case "stopped":
		fmt.Fprintf(&b, "if systemctl is-active --quiet %s; then\n  systemctl stop %s\nfi\n", name, name)
	case "enabled":
		fmt.Fprintf(&b, "if ! systemctl is-enabled --quiet %s; then\n  systemctl enable %s\nfi\n", name, name)
	case "disabled":
		fmt.Fprintf(&b, "if systemctl is-enabled --quiet %s; then\n  systemctl disable %s\nfi\n", name, name)
	default:
		return "", fmt.Errorf("resource %s: unsupported service state %q", r.ID, r.State)
	}

	if r.Enabled != nil {
		if *r.Enabled {
			fmt.Fprintf(&b, "if ! systemctl is-enabled --quiet %s; then\n  systemctl enable %s\nfi\n", name, name)
		} else {
			fmt.Fprintf(&b, "if systemctl is-enabled --quiet %s; then\n  systemctl disable %s\nfi\n", name, name)
		}
	}

	if len(r.RestartOn) > 0 {
		fmt.Fprintf(&b, "systemctl reload-or-restart %s\n", name)
	}

	switch r.State {
	case "running":
		fmt.Fprintf(&b, "systemctl is-active --quiet %s\n", name)
	case "stopped":
		fmt.Fprintf(&b, "! systemctl is-active --quiet %s\n", name)
	case "enabled":
		fmt.Fprintf(&b, "systemctl is-enabled --quiet %s\n", name)
	case "disabled":
		fmt.Fprintf(&b, "! systemctl is-enabled --quiet %s\n", name)
	}
	return b.String(), nil
}
