// Package config loads and validates a top-level convergence document.
package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forjar/forjar/internal/consts"
	"github.com/forjar/forjar/internal/core"
)

// modeRe matches a 3- or 4-digit octal permission string ("0644", "755").
var modeRe = regexp.MustCompile(`^[0-7]{3,4}$`)

var validStates = map[core.ResourceKind]map[string]bool{
	core.KindPackage: {"present": true, "absent": true},
	core.KindFile:    {"file": true, "directory": true, "symlink": true, "absent": true},
	core.KindService: {"running": true, "stopped": true, "enabled": true, "disabled": true},
	core.KindMount:   {"mounted": true, "unmounted": true, "absent": true},
}

// isTemplated reports whether a field still carries a {{params.*}}
// placeholder. Such fields are skipped by the mode and state checks:
// structural validation runs before ResolveTemplates substitutes them, and
// the substituted values are not validated again afterwards.
func isTemplated(s string) bool {
	return strings.Contains(s, "{{")
}

// Load reads and decodes a config document without validating it — callers
// almost always want Validate soon afterward, but recipe expansion needs to
// run on the decoded document first (ResolveTemplates runs after Validate).
func Load(path string) (*core.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg core.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for _, id := range cfg.Machines.Keys() {
		m, _ := cfg.Machines.Get(id)
		m.ID = id
		cfg.Machines.Set(id, m)
	}
	for _, id := range cfg.Resources.Keys() {
		r, _ := cfg.Resources.Get(id)
		r.ID = id
		cfg.Resources.Set(id, r)
	}
	return &cfg, nil
}

// Validate runs the structural checks §4.2/§6.1 require before a config is
// safe to resolve and plan: schema version, non-empty name, every machine
// reference resolvable ("localhost" always implicitly valid even when
// undeclared), no unknown or self-referential depends_on, and the
// kind-specific required fields.
func Validate(cfg *core.Config) error {
	if cfg.Version != consts.SchemaVersion {
		return fmt.Errorf("unsupported config version %q, expected %q", cfg.Version, consts.SchemaVersion)
	}
	if cfg.Name == "" {
		return fmt.Errorf("config name must not be empty")
	}

	knownMachines := make(map[string]bool)
	for _, id := range cfg.Machines.Keys() {
		knownMachines[id] = true
	}
	knownMachines[consts.AddrLocalhost] = true

	for _, id := range cfg.Resources.SortedKeys() {
		r, _ := cfg.Resources.Get(id)
		if len(r.Machine) == 0 {
			return fmt.Errorf("resource %q: machine is required", id)
		}
		for _, m := range r.Machine {
			if !knownMachines[m] {
				return fmt.Errorf("resource %q: references undeclared machine %q", id, m)
			}
		}
		for _, dep := range r.DependsOn {
			if dep == id {
				return fmt.Errorf("resource %q: depends_on references itself", id)
			}
			if _, ok := cfg.Resources.Get(dep); !ok {
				return fmt.Errorf("resource %q: depends_on references unknown resource %q", id, dep)
			}
		}
		if err := validateKindFields(r); err != nil {
			return fmt.Errorf("resource %q: %w", id, err)
		}
	}
	return nil
}

func validateKindFields(r core.Resource) error {
	switch r.Kind {
	case core.KindPackage:
		if r.Provider == "" {
			return fmt.Errorf("package requires provider")
		}
		if len(r.Packages) == 0 {
			return fmt.Errorf("package requires at least one entry in packages")
		}
		if r.State == "" {
			return fmt.Errorf("package requires state")
		}
	case core.KindFile:
		if r.Path == "" {
			return fmt.Errorf("file requires path")
		}
		if r.State == "" {
			return fmt.Errorf("file requires state")
		}
		if r.State == "file" && r.Content != "" && r.Source != "" {
			return fmt.Errorf("file: content and source are mutually exclusive")
		}
		if r.State == "symlink" && r.Target == "" {
			return fmt.Errorf("symlink requires target")
		}
	case core.KindService:
		if r.Name == "" {
			return fmt.Errorf("service requires name")
		}
		if r.State == "" {
			return fmt.Errorf("service requires state")
		}
	case core.KindMount:
		if r.Path == "" || r.Target == "" {
			return fmt.Errorf("mount requires both path and target")
		}
		if r.State == "" {
			return fmt.Errorf("mount requires state")
		}
	case core.KindRecipe:
		if r.RecipeSource == "" {
			return fmt.Errorf("recipe instance requires source_recipe")
		}
	default:
		return fmt.Errorf("unknown resource type %q", r.Kind)
	}

	if r.Mode != "" && !isTemplated(r.Mode) && !modeRe.MatchString(r.Mode) {
		return fmt.Errorf("mode %q is not a valid octal permission string", r.Mode)
	}
	if states, ok := validStates[r.Kind]; ok && r.State != "" && !isTemplated(r.State) && !states[r.State] {
		return fmt.Errorf("%s: unsupported state %q", r.Kind, r.State)
	}
	return nil
}

// MachineIDs returns the config's declared machine ids in declaration order.
func MachineIDs(cfg *core.Config) []string {
	return cfg.Machines.Keys()
}

// SortedMachineIDs returns every machine a resource targets, declared or
// not (localhost may be used without a machines: entry), in lexical order.
func SortedMachineIDs(cfg *core.Config) []string {
	set := make(map[string]bool)
	for _, id := range cfg.Machines.Keys() {
		set[id] = true
	}
	for _, id := range cfg.Resources.Keys() {
		r, _ := cfg.Resources.Get(id)
		for _, m := range r.Machine {
			set[m] = true
		}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
