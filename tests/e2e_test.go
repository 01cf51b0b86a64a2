// Package tests exercises the full load -> resolve -> plan -> apply -> drift
// pipeline end to end against the local transport, against the scenarios
// named in the resource convergence model's testable properties.
package tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forjar/forjar/internal/codegen"
	"github.com/forjar/forjar/internal/config"
	"github.com/forjar/forjar/internal/core"
	"github.com/forjar/forjar/internal/recipe"
	"github.com/forjar/forjar/internal/transport"
)

func writeConfig(t *testing.T, dir, doc string) string {
	t.Helper()
	path := filepath.Join(dir, "forjar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func applyOnce(t *testing.T, stateDir string, cfg *core.Config) core.ApplySummary {
	t.Helper()
	order, err := core.TopoSort(cfg.Resources)
	require.NoError(t, err)

	locks := map[string]*core.StateLock{}
	for _, id := range config.SortedMachineIDs(cfg) {
		lock, err := core.LoadStateLock(stateDir, id)
		require.NoError(t, err)
		locks[id] = lock
	}

	plan, err := core.ComputePlan(cfg.Resources, order, locks)
	require.NoError(t, err)

	lock := locks["localhost"]
	if lock == nil {
		lock = core.NewStateLock("localhost", "localhost")
	}

	tr := transport.NewLocalTransport()
	defer tr.Close()

	logPath := filepath.Join(stateDir, "localhost")
	require.NoError(t, os.MkdirAll(logPath, 0o755))
	log, err := core.OpenEventLog(stateDir, "localhost")
	require.NoError(t, err)
	defer log.Close()

	executor := core.NewExecutor(tr, codegen.NewRenderer(), core.NewRunID())
	summary, err := executor.ApplyMachine(context.Background(), core.RunContext{}, &core.Machine{ID: "localhost", Addr: "127.0.0.1"},
		plan.ForMachine("localhost"), cfg.Resources, cfg.Params, cfg.Policy.FailureOrDefault(), lock, log)
	require.NoError(t, err)

	require.NoError(t, core.SaveStateLock(stateDir, lock))
	return summary
}

// TestS1_IdempotentDirectory: first apply creates a directory, second apply
// is a no-op once the lock records the matching hash.
func TestS1_IdempotentDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "s1-dir")
	stateDir := t.TempDir()

	doc := `version: "1.0"
name: s1
machines:
  localhost:
    addr: 127.0.0.1
resources:
  d:
    type: file
    machine: localhost
    path: ` + target + `
    state: directory
    mode: "0755"
`
	cfg, err := config.Load(writeConfig(t, t.TempDir(), doc))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	require.NoError(t, core.ResolveTemplates(cfg.Resources, cfg.Params))

	first := applyOnce(t, stateDir, cfg)
	require.Equal(t, 1, first.Converged)
	require.Equal(t, 0, first.Unchanged)

	info, err := os.Stat(target)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	lock, err := core.LoadStateLock(stateDir, "localhost")
	require.NoError(t, err)
	require.NotNil(t, lock)
	_, ok := lock.Resources.Get("d")
	require.True(t, ok)

	second := applyOnce(t, stateDir, cfg)
	require.Equal(t, 0, second.Converged)
	require.Equal(t, 1, second.Unchanged)
}

// TestS2_DependencyOrder: b depends on a, c depends on b, aa is an
// independent sibling — resolver places both zero-in-degree nodes first,
// alphabetically, then walks the chain.
func TestS2_DependencyOrder(t *testing.T) {
	resources := core.NewOrderedMap[core.Resource]()
	resources.Set("c", core.Resource{ID: "c", Kind: core.KindFile, Machine: core.MachineRef{"localhost"}, DependsOn: []string{"b"}, Path: "/tmp/c", State: "file", Content: "c"})
	resources.Set("b", core.Resource{ID: "b", Kind: core.KindFile, Machine: core.MachineRef{"localhost"}, DependsOn: []string{"a"}, Path: "/tmp/b", State: "file", Content: "b"})
	resources.Set("a", core.Resource{ID: "a", Kind: core.KindFile, Machine: core.MachineRef{"localhost"}, Path: "/tmp/a", State: "file", Content: "a"})
	resources.Set("aa", core.Resource{ID: "aa", Kind: core.KindFile, Machine: core.MachineRef{"localhost"}, Path: "/tmp/aa", State: "file", Content: "aa"})

	order, err := core.TopoSort(resources)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "aa", "b", "c"}, order)
}

// TestS3_Cycle: a and b depend on each other; the resolver must report
// exactly that residual set rather than silently truncating the order.
func TestS3_Cycle(t *testing.T) {
	resources := core.NewOrderedMap[core.Resource]()
	resources.Set("a", core.Resource{ID: "a", Kind: core.KindFile, Machine: core.MachineRef{"localhost"}, DependsOn: []string{"b"}, Path: "/tmp/a", State: "file"})
	resources.Set("b", core.Resource{ID: "b", Kind: core.KindFile, Machine: core.MachineRef{"localhost"}, DependsOn: []string{"a"}, Path: "/tmp/b", State: "file"})

	_, err := core.TopoSort(resources)
	var cycleErr *core.CycleError
	require.ErrorAs(t, err, &cycleErr)
	require.ElementsMatch(t, []string{"a", "b"}, cycleErr.Residual)
}

// TestS4_HeredocSafety: shell metacharacters in content must survive the
// generated heredoc byte-for-byte, never expanded by the shell that runs it.
func TestS4_HeredocSafety(t *testing.T) {
	target := filepath.Join(t.TempDir(), "s4-file")
	stateDir := t.TempDir()
	const raw = "value=$HOME and `whoami`"

	doc := `version: "1.0"
name: s4
machines:
  localhost:
    addr: 127.0.0.1
resources:
  f:
    type: file
    machine: localhost
    path: ` + target + `
    state: file
    content: |
      ` + raw + `
`
	cfg, err := config.Load(writeConfig(t, t.TempDir(), doc))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	require.NoError(t, core.ResolveTemplates(cfg.Resources, cfg.Params))

	summary := applyOnce(t, stateDir, cfg)
	require.Equal(t, 1, summary.Converged)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, raw+"\n", string(got))
}

// TestS5_StopOnFirstFailure: b is crafted to fail (mount of a device that
// does not exist); under stop_on_first, a's lock entry is recorded but b
// and c are never attempted and the summary reports an abort.
func TestS5_StopOnFirstFailure(t *testing.T) {
	target := filepath.Join(t.TempDir(), "s5-a")
	stateDir := t.TempDir()

	doc := `version: "1.0"
name: s5
machines:
  localhost:
    addr: 127.0.0.1
policy:
  failure: stop_on_first
resources:
  a:
    type: file
    machine: localhost
    path: ` + target + `
    state: file
    content: "converges fine"
  b:
    type: mount
    machine: localhost
    depends_on: [a]
    path: /mnt/forjar-test-s5
    target: /dev/forjar-test-nonexistent-device
    fstype: ext4
    state: mounted
  c:
    type: file
    machine: localhost
    depends_on: [b]
    path: ` + filepath.Join(t.TempDir(), "s5-c") + `
    state: file
    content: "never reached"
`
	cfg, err := config.Load(writeConfig(t, t.TempDir(), doc))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	require.NoError(t, core.ResolveTemplates(cfg.Resources, cfg.Params))

	summary := applyOnce(t, stateDir, cfg)
	require.True(t, summary.Aborted)
	require.Equal(t, 1, summary.Converged)
	require.Equal(t, 1, summary.Failed)

	lock, err := core.LoadStateLock(stateDir, "localhost")
	require.NoError(t, err)
	_, hasA := lock.Resources.Get("a")
	_, hasB := lock.Resources.Get("b")
	_, hasC := lock.Resources.Get("c")
	require.True(t, hasA)
	require.False(t, hasB)
	require.False(t, hasC)
}

// TestS6_DriftDetection: after S1's directory converges, changing the
// declared mode to 0700 must surface as "drifted" rather than "ok". Drift
// compares the recomputed desired hash with the lock and does not inspect
// the machine, so the chmod alone would not be reported.
func TestS6_DriftDetection(t *testing.T) {
	target := filepath.Join(t.TempDir(), "s6-dir")
	stateDir := t.TempDir()

	doc := `version: "1.0"
name: s6
machines:
  localhost:
    addr: 127.0.0.1
resources:
  d:
    type: file
    machine: localhost
    path: ` + target + `
    state: directory
    mode: "0755"
`
	cfg, err := config.Load(writeConfig(t, t.TempDir(), doc))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	require.NoError(t, core.ResolveTemplates(cfg.Resources, cfg.Params))

	applyOnce(t, stateDir, cfg)
	require.NoError(t, os.Chmod(target, 0o700))

	doc2 := `version: "1.0"
name: s6
machines:
  localhost:
    addr: 127.0.0.1
resources:
  d:
    type: file
    machine: localhost
    path: ` + target + `
    state: directory
    mode: "0700"
`
	cfg2, err := config.Load(writeConfig(t, t.TempDir(), doc2))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg2))
	require.NoError(t, core.ResolveTemplates(cfg2.Resources, cfg2.Params))

	order, err := core.TopoSort(cfg.Resources)
	require.NoError(t, err)
	lock, err := core.LoadStateLock(stateDir, "localhost")
	require.NoError(t, err)
	locks := map[string]*core.StateLock{"localhost": lock}

	results, err := core.CheckDrift(cfg2.Resources, order, locks)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, core.DriftDrifted, results[0].Status)
}

// TestS7_RecipeExpansion: an instance r with inner resources x, y
// (y depends_on x) and an external depends_on=[ext] must expand to r/x and
// r/y, with r/y depending on r/x and r/x additionally depending on ext.
func TestS7_RecipeExpansion(t *testing.T) {
	dir := t.TempDir()
	recipePath := filepath.Join(dir, "pair.recipe.yaml")
	require.NoError(t, os.WriteFile(recipePath, []byte(`
recipe:
  name: pair
resources:
  x:
    type: file
    machine: localhost
    path: /tmp/pair-x
    state: file
    content: "x"
  y:
    type: file
    machine: localhost
    depends_on: [x]
    path: /tmp/pair-y
    state: file
    content: "y"
`), 0o644))

	cfg := &core.Config{
		Version:   "1.0",
		Name:      "s7",
		Machines:  core.NewOrderedMap[core.Machine](),
		Resources: core.NewOrderedMap[core.Resource](),
	}
	cfg.Machines.Set("localhost", core.Machine{ID: "localhost", Addr: "127.0.0.1"})
	cfg.Resources.Set("ext", core.Resource{ID: "ext", Kind: core.KindFile, Machine: core.MachineRef{"localhost"}, Path: "/tmp/ext", State: "file", Content: "ext"})
	cfg.Resources.Set("r", core.Resource{
		ID: "r", Kind: core.KindRecipe, Machine: core.MachineRef{"localhost"},
		DependsOn: []string{"ext"}, RecipeSource: "pair.recipe.yaml",
	})

	require.NoError(t, recipe.Expand(cfg, dir))

	_, stillThere := cfg.Resources.Get("r")
	require.False(t, stillThere)

	rx, ok := cfg.Resources.Get("r/x")
	require.True(t, ok)
	ry, ok := cfg.Resources.Get("r/y")
	require.True(t, ok)

	require.Equal(t, []string{"r/x"}, ry.DependsOn)
	require.Contains(t, rx.DependsOn, "ext")
}
