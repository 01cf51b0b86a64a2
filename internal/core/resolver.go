package core

import (
	"fmt"
	"sort"
	"strings"
)

// resolveParamPlaceholders performs the strict {{params.K}} substitution
// pass: every placeholder must reference a known parameter, and anything
// that isn't a well-formed "params.K" placeholder is a TemplateError. This
// mirrors original_source's manual bracket scan rather than text/template's
// much looser semantics, which silently zero-values missing keys instead of
// failing (see §10.5 for where text/template is used instead).
func resolveParamPlaceholders(s string, params map[string]interface{}) (string, error) {
	var out strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:start])
		relEnd := strings.Index(rest[start:], "}}")
		if relEnd == -1 {
			return "", fmt.Errorf("unterminated template placeholder in %q", s)
		}
		end := start + relEnd
		placeholder := strings.TrimSpace(rest[start+2 : end])
		const prefix = "params."
		if !strings.HasPrefix(placeholder, prefix) {
			return "", fmt.Errorf("unsupported template placeholder {{%s}}", placeholder)
		}
		key := strings.TrimPrefix(placeholder, prefix)
		val, ok := params[key]
		if !ok {
			return "", fmt.Errorf("unresolved template parameter %q", key)
		}
		out.WriteString(fmt.Sprintf("%v", val))
		rest = rest[end+2:]
	}
	return out.String(), nil
}

// ResolveTemplates substitutes {{params.*}} placeholders in place across the
// kind-specific string fields of every resource, including packages and
// restart_on. The type, machine, depends_on and when fields are not
// substituted.
func ResolveTemplates(resources *OrderedMap[Resource], params map[string]interface{}) error {
	for _, id := range resources.Keys() {
		r, _ := resources.Get(id)
		if err := resolveResourceTemplates(&r, params); err != nil {
			return fmt.Errorf("resource %s: %w", id, err)
		}
		resources.Set(id, r)
	}
	return nil
}

func resolveResourceTemplates(r *Resource, params map[string]interface{}) error {
	fields := []*string{
		&r.Path, &r.Content, &r.Source, &r.Target,
		&r.Owner, &r.Group, &r.Mode, &r.Name,
		&r.FSType, &r.Options, &r.Provider, &r.State,
	}
	for _, f := range fields {
		resolved, err := resolveParamPlaceholders(*f, params)
		if err != nil {
			return err
		}
		*f = resolved
	}
	for i, p := range r.Packages {
		resolved, err := resolveParamPlaceholders(p, params)
		if err != nil {
			return err
		}
		r.Packages[i] = resolved
	}
	for i, p := range r.RestartOn {
		resolved, err := resolveParamPlaceholders(p, params)
		if err != nil {
			return err
		}
		r.RestartOn[i] = resolved
	}
	return nil
}

// CycleError reports the residual node set a topological sort could not place.
type CycleError struct {
	Residual []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected among: %s", strings.Join(e.Residual, ", "))
}

// TopoSort computes the single deterministic ordering required by §4.4:
// Kahn's algorithm seeded by all zero-in-degree nodes, always popping the
// lexicographically smallest candidate. This is the sole determinism anchor
// for execution order; it intentionally produces one flat order rather than
// the teacher's parallel-layer variant, since the core is single-threaded
// (§5) and has no use for layers.
func TopoSort(resources *OrderedMap[Resource]) ([]string, error) {
	ids := resources.Keys()
	idSet := make(map[string]bool, len(ids))
	inDegree := make(map[string]int, len(ids))
	dependents := make(map[string][]string, len(ids))
	for _, id := range ids {
		idSet[id] = true
		inDegree[id] = 0
	}
	for _, id := range ids {
		r, _ := resources.Get(id)
		for _, dep := range r.DependsOn {
			if !idSet[dep] {
				return nil, fmt.Errorf("resource %q depends on unknown resource %q", id, dep)
			}
			dependents[dep] = append(dependents[dep], id)
			inDegree[id]++
		}
	}

	var ready []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	out := make([]string, 0, len(ids))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		out = append(out, next)

		for _, dep := range dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
				sort.Strings(ready)
			}
		}
	}

	if len(out) != len(ids) {
		placed := make(map[string]bool, len(out))
		for _, id := range out {
			placed[id] = true
		}
		var residual []string
		for _, id := range ids {
			if !placed[id] {
				residual = append(residual, id)
			}
		}
		sort.Strings(residual)
		return nil, &CycleError{Residual: residual}
	}
	return out, nil
}
