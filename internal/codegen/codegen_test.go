package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forjar/forjar/internal/core"
)

func TestRenderPackage_Apt(t *testing.T) {
	script, err := NewRenderer().Render(core.Resource{
		ID: "pkg", Kind: core.KindPackage,
		Provider: "apt", Packages: []string{"nginx", "curl"}, State: "present",
	})
	require.NoError(t, err)
	require.Contains(t, script, "dpkg -s")
	require.Contains(t, script, "apt-get install -y")
}

func TestRenderFile_ContentHeredoc(t *testing.T) {
	script, err := NewRenderer().Render(core.Resource{
		ID: "f", Kind: core.KindFile,
		Path: "/etc/motd", State: "file", Content: "hello world",
	})
	require.NoError(t, err)
	require.Contains(t, script, "cat > '/etc/motd.forjar-tmp' <<'FORJAR_EOF'")
	require.Contains(t, script, "hello world")
	require.Contains(t, script, "mv -f '/etc/motd.forjar-tmp' '/etc/motd'")
	require.Contains(t, script, "test -f '/etc/motd'")
}

func TestRenderFile_SourceSkipsHeredoc(t *testing.T) {
	script, err := NewRenderer().Render(core.Resource{
		ID: "f", Kind: core.KindFile,
		Path: "/etc/motd", State: "file", Source: "/local/motd",
	})
	require.NoError(t, err)
	require.NotContains(t, script, "FORJAR_EOF")
	require.Contains(t, script, "mkdir -p")
}

func TestRenderService_RestartOnForcesReload(t *testing.T) {
	enabled := true
	script, err := NewRenderer().Render(core.Resource{
		ID: "svc", Kind: core.KindService,
		Name: "nginx", State: "running", Enabled: &enabled,
		RestartOn: []string{"file_conf"},
	})
	require.NoError(t, err)
	require.Contains(t, script, "systemctl reload-or-restart 'nginx'")
}

func TestRenderMount_Mounted(t *testing.T) {
	script, err := NewRenderer().Render(core.Resource{
		ID: "m", Kind: core.KindMount,
		Path: "/mnt/data", Target: "/dev/sdb1", FSType: "ext4", State: "mounted",
	})
	require.NoError(t, err)
	require.Contains(t, script, "grep -qF")
	require.Contains(t, script, "/etc/fstab")
	require.Contains(t, script, "mount -t 'ext4'")
	require.Contains(t, script, "mountpoint -q '/mnt/data'")
}

func TestShellQuote_EscapesSingleQuotes(t *testing.T) {
	require.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
