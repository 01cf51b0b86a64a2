package cmd

import (
	"path/filepath"

	"github.com/forjar/forjar/internal/config"
	"github.com/forjar/forjar/internal/core"
	"github.com/forjar/forjar/internal/recipe"
)

// loadAndResolve loads a config document, expands any recipe instances,
// validates the structural result, and substitutes every {{params.*}}
// placeholder — the full pipeline every command except init needs before
// it can touch a resource.
func loadAndResolve(path string) (*core.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := recipe.Expand(cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if err := core.ResolveTemplates(cfg.Resources, cfg.Params); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadLocks reads the lock of every declared or resource-targeted machine,
// tolerating machines that have never been applied (a nil entry plans as
// all-CREATE).
func loadLocks(stateDir string, cfg *core.Config) (map[string]*core.StateLock, error) {
	locks := make(map[string]*core.StateLock)
	for _, id := range config.SortedMachineIDs(cfg) {
		lock, err := core.LoadStateLock(stateDir, id)
		if err != nil {
			return nil, err
		}
		locks[id] = lock
	}
	return locks, nil
}

// resolveMachine returns a config's declared Machine, or a bare stand-in
// addressed by its own id for machines used only via "localhost"-style
// implicit references.
func resolveMachine(cfg *core.Config, id string) *core.Machine {
	if m, ok := cfg.Machines.Get(id); ok {
		m.ID = id
		return &m
	}
	return &core.Machine{ID: id, Addr: id}
}
