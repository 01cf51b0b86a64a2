// Package recipe loads reusable resource bundles and expands their
// instances into a config's flat resource set.
package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/forjar/forjar/internal/core"
)

// Load reads and decodes one recipe document from disk.
func Load(path string) (*core.RecipeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe %s: %w", path, err)
	}
	var rf core.RecipeFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse recipe %s: %w", path, err)
	}
	if rf.Resources == nil {
		rf.Resources = core.NewOrderedMap[core.Resource]()
	}
	for _, id := range rf.Resources.Keys() {
		r, _ := rf.Resources.Get(id)
		r.ID = id
		rf.Resources.Set(id, r)
	}
	return &rf, nil
}

// ValidateInputs checks supplied values against a recipe's declared input
// schema and returns the final parameter set: supplied values win,
// declared defaults fill anything left unsupplied, and a required input
// with neither is an error. This is the broader type/constraint set spec
// calls for — string/integer/boolean/path/enum/list crossed with
// min/max, min_length/max_length, pattern, choices, and must_exist —
// a superset of what the bundled recipes in original_source/ needed.
func ValidateInputs(meta core.RecipeMetadata, supplied map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(meta.Inputs))
	for name, decl := range meta.Inputs {
		val, ok := supplied[name]
		if !ok {
			if decl.Default != nil {
				val = decl.Default
				ok = true
			} else if decl.Required {
				return nil, fmt.Errorf("input %q is required", name)
			} else {
				continue
			}
		}
		coerced, err := coerceAndValidate(name, decl, val)
		if err != nil {
			return nil, err
		}
		out[name] = coerced
	}
	return out, nil
}

func coerceAndValidate(name string, decl core.RecipeInput, val interface{}) (interface{}, error) {
	switch decl.Type {
	case core.InputString:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("input %q: expected a string", name)
		}
		if err := checkStringConstraints(name, decl, s); err != nil {
			return nil, err
		}
		return s, nil

	case core.InputPath:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("input %q: expected a string path", name)
		}
		if err := checkStringConstraints(name, decl, s); err != nil {
			return nil, err
		}
		if decl.MustExist {
			if _, err := os.Stat(s); err != nil {
				return nil, fmt.Errorf("input %q: path %q does not exist: %w", name, s, err)
			}
		}
		return s, nil

	case core.InputEnum:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("input %q: expected a string", name)
		}
		found := false
		for _, c := range decl.Choices {
			if c == s {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("input %q: %q is not one of %v", name, s, decl.Choices)
		}
		return s, nil

	case core.InputBoolean:
		b, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("input %q: expected a boolean", name)
		}
		return b, nil

	case core.InputInteger:
		f, ok := asFloat(val)
		if !ok {
			return nil, fmt.Errorf("input %q: expected an integer", name)
		}
		if decl.Min != nil && f < *decl.Min {
			return nil, fmt.Errorf("input %q: %v is below minimum %v", name, f, *decl.Min)
		}
		if decl.Max != nil && f > *decl.Max {
			return nil, fmt.Errorf("input %q: %v is above maximum %v", name, f, *decl.Max)
		}
		return int64(f), nil

	case core.InputList:
		items, ok := val.([]interface{})
		if !ok {
			return nil, fmt.Errorf("input %q: expected a list", name)
		}
		if decl.MinLength != nil && len(items) < *decl.MinLength {
			return nil, fmt.Errorf("input %q: has %d entries, minimum is %d", name, len(items), *decl.MinLength)
		}
		if decl.MaxLength != nil && len(items) > *decl.MaxLength {
			return nil, fmt.Errorf("input %q: has %d entries, maximum is %d", name, len(items), *decl.MaxLength)
		}
		return items, nil

	default:
		return nil, fmt.Errorf("input %q: unknown input type %q", name, decl.Type)
	}
}

func checkStringConstraints(name string, decl core.RecipeInput, s string) error {
	if decl.MinLength != nil && len(s) < *decl.MinLength {
		return fmt.Errorf("input %q: length %d is below minimum %d", name, len(s), *decl.MinLength)
	}
	if decl.MaxLength != nil && len(s) > *decl.MaxLength {
		return fmt.Errorf("input %q: length %d is above maximum %d", name, len(s), *decl.MaxLength)
	}
	if decl.Pattern != "" {
		re, err := regexp.Compile(decl.Pattern)
		if err != nil {
			return fmt.Errorf("input %q: invalid pattern %q: %w", name, decl.Pattern, err)
		}
		if !re.MatchString(s) {
			return fmt.Errorf("input %q: %q does not match pattern %q", name, s, decl.Pattern)
		}
	}
	return nil
}

func asFloat(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// Expand replaces every recipe-instance resource in a config with the
// namespaced resources its recipe declares, recursively expanding
// "requires" recipes first. basePath anchors relative recipe paths, taken
// from source_recipe or, when that is unset, from source (the directory the
// top-level config was loaded from).
func Expand(cfg *core.Config, basePath string) error {
	for _, id := range cfg.Resources.Keys() {
		r, _ := cfg.Resources.Get(id)
		if r.Kind != core.KindRecipe {
			continue
		}
		if err := expandInstance(cfg, r, basePath, nil); err != nil {
			return fmt.Errorf("recipe instance %q: %w", id, err)
		}
	}
	return nil
}

func expandInstance(cfg *core.Config, instance core.Resource, basePath string, stack []string) error {
	recipePath := instance.RecipeSource
	if recipePath == "" {
		recipePath = instance.Source
	}
	if !filepath.IsAbs(recipePath) {
		recipePath = filepath.Join(basePath, recipePath)
	}
	for _, seen := range stack {
		if seen == recipePath {
			return fmt.Errorf("circular recipe dependency: %v -> %s", stack, recipePath)
		}
	}
	stack = append(stack, recipePath)

	rf, err := Load(recipePath)
	if err != nil {
		return err
	}

	for _, req := range rf.Recipe.Requires {
		reqPath := req
		if !filepath.IsAbs(reqPath) {
			reqPath = filepath.Join(filepath.Dir(recipePath), reqPath)
		}
		reqInstance := core.Resource{
			ID:           instance.ID + "/requires/" + filepath.Base(reqPath),
			Kind:         core.KindRecipe,
			Machine:      instance.Machine,
			RecipeSource: reqPath,
		}
		if err := expandInstance(cfg, reqInstance, basePath, stack); err != nil {
			return err
		}
	}

	params, err := ValidateInputs(rf.Recipe, instance.Inputs)
	if err != nil {
		return err
	}
	if err := core.ResolveTemplates(rf.Resources, params); err != nil {
		return err
	}

	namespaced := core.NewOrderedMap[core.Resource]()
	rename := make(map[string]string, rf.Resources.Len())
	for _, innerID := range rf.Resources.Keys() {
		rename[innerID] = instance.ID + "/" + innerID
	}
	for _, innerID := range rf.Resources.Keys() {
		inner, _ := rf.Resources.Get(innerID)
		inner.ID = rename[innerID]
		inner.Machine = instance.Machine
		deps := make([]string, len(inner.DependsOn))
		for i, d := range inner.DependsOn {
			if mapped, ok := rename[d]; ok {
				deps[i] = mapped
			} else {
				deps[i] = d
			}
		}
		inner.DependsOn = deps
		restarts := make([]string, len(inner.RestartOn))
		for i, t := range inner.RestartOn {
			if mapped, ok := rename[t]; ok {
				restarts[i] = mapped
			} else {
				restarts[i] = t
			}
		}
		inner.RestartOn = restarts
		namespaced.Set(inner.ID, inner)
	}

	if len(instance.DependsOn) > 0 {
		order, err := core.TopoSort(namespaced)
		if err != nil {
			return err
		}
		if len(order) > 0 {
			first, _ := namespaced.Get(order[0])
			first.DependsOn = append(first.DependsOn, instance.DependsOn...)
			namespaced.Set(order[0], first)
		}
	}

	for _, id := range namespaced.SortedKeys() {
		r, _ := namespaced.Get(id)
		cfg.Resources.Set(id, r)
	}
	cfg.Resources.Delete(instance.ID)
	return nil
}
