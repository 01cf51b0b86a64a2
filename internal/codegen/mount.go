package codegen

import (
	"fmt"
	"strings"

	"github.com/forjar/forjar/internal/core"
)

// renderMount keeps /etc/fstab idempotent with a grep -q presence check on
// the way in and a sed deletion on the way out, since mount/umount alone
// says nothing about whether the entry survives a reboot.
func renderMount(r core.Resource) (string, error) {
	var b strings.Builder
	b.WriteString(scriptPrelude)
	path := shellQuote(r.Path)
	target := shellQuote(r.Target)
	fstype := r.FSType
	options := r.Options
	if options == "" {
		options = "defaults"
	}

	switch r.State {
	case "mounted":
		fmt.Fprintf(&b, "mkdir -p %s\n", path)
		fmt.Fprintf(&b, "if ! grep -qF %s /etc/fstab; then\n  printf '%%s %%s %%s %%s 0 0\\n' %s %s %s %s >> /etc/fstab\nfi\n",
			path, target, path, shellQuote(fstype), shellQuote(options))
		fmt.Fprintf(&b, "mountpoint -q %s || mount -t %s -o %s %s %s\n", path, shellQuote(fstype), shellQuote(options), target, path)
		fmt.Fprintf(&b, "mountpoint -q %s\n", path)
	case "unmounted", "absent":
		fmt.Fprintf(&b, "mountpoint -q %s && umount %s || true\n", path, path)
		sedExpr := shellQuote(fmt.Sprintf(`\|%s|d`, r.Path))
		fmt.Fprintf(&b, "sed -i %s /etc/fstab\n", sedExpr)
		if r.State == "absent" {
			fmt.Fprintf(&b, "if [ -d %s ]; then\n  rmdir %s\nfi\n", path, path)
			fmt.Fprintf(&b, "! test -e %s\n", path)
		} else {
			fmt.Fprintf(&b, "! mountpoint -q %s\n", path)
		}
	default:
		return "", fmt.Errorf("resource %s: unsupported mount state %q", r.ID, r.State)
	}
	return b.String(), nil
}
