package core

import (
	"fmt"
	"sort"
	"strings"
)

func contentOrSourceHash(r Resource) (string, error) {
	if r.State != "file" {
		return "", nil
	}
	if r.Content != "" {
		return HashString(r.Content), nil
	}
	if r.Source != "" {
		h, err := HashFile(r.Source)
		if err != nil {
			return "", fmt.Errorf("resource %s: %w", r.ID, err)
		}
		return h, nil
	}
	return "", nil
}

// ownHash computes the field-ordered desired-state hash per §4.5, leaving
// out a service's restart_on contribution — that requires every other
// resource's own hash to already be known, which a single pass can't
// guarantee regardless of topological order (restart_on is not necessarily
// a depends_on edge). See finalizeHash.
func ownHash(r Resource) (string, error) {
	switch r.Kind {
	case KindPackage:
		pkgs := append([]string(nil), r.Packages...)
		sort.Strings(pkgs)
		return CompositeHash(r.Provider, strings.Join(pkgs, ","), r.State), nil
	case KindFile:
		cs, err := contentOrSourceHash(r)
		if err != nil {
			return "", err
		}
		return CompositeHash(r.State, r.Path, cs, r.Owner, r.Group, r.Mode, r.Target), nil
	case KindService:
		enabled := "false"
		if r.Enabled != nil && *r.Enabled {
			enabled = "true"
		}
		return CompositeHash(r.Name, r.State, enabled), nil
	case KindMount:
		return CompositeHash(r.Path, r.Target, r.FSType, r.Options, r.State), nil
	default:
		return "", fmt.Errorf("resource %s: desired-state hash not implemented for kind %q", r.ID, r.Kind)
	}
}

// DesiredHashes computes the final desired-state hash for every resource,
// folding each service's sorted(restart_on-hashes) contribution in a second
// pass once every resource's own hash is known.
func DesiredHashes(resources *OrderedMap[Resource]) (map[string]string, error) {
	own := make(map[string]string, resources.Len())
	for _, id := range resources.Keys() {
		r, _ := resources.Get(id)
		h, err := ownHash(r)
		if err != nil {
			return nil, err
		}
		own[id] = h
	}

	final := make(map[string]string, resources.Len())
	for _, id := range resources.Keys() {
		r, _ := resources.Get(id)
		if r.Kind == KindService && len(r.RestartOn) > 0 {
			refs := make([]string, 0, len(r.RestartOn))
			for _, t := range r.RestartOn {
				h, ok := own[t]
				if !ok {
					return nil, fmt.Errorf("resource %s: restart_on references unknown resource %q", id, t)
				}
				refs = append(refs, h)
			}
			sort.Strings(refs)
			final[id] = CompositeHash(append([]string{own[id]}, refs...)...)
		} else {
			final[id] = own[id]
		}
	}
	return final, nil
}

func determineAction(entry *ResourceLock, desiredHash string, state string) PlanAction {
	if state == "absent" {
		if entry != nil {
			return ActionDestroy
		}
		return ActionNoop
	}
	if entry == nil {
		return ActionCreate
	}
	if entry.Hash != desiredHash {
		return ActionUpdate
	}
	return ActionNoop
}

// ComputePlan diffs the fully-resolved resource set, in topological order,
// against each target machine's lock (locks may be nil for machines that
// have never been applied).
func ComputePlan(resources *OrderedMap[Resource], order []string, locks map[string]*StateLock) (Plan, error) {
	hashes, err := DesiredHashes(resources)
	if err != nil {
		return Plan{}, err
	}

	var plan Plan
	for _, id := range order {
		r, ok := resources.Get(id)
		if !ok {
			return Plan{}, fmt.Errorf("plan: resolver order references unknown resource %q", id)
		}
		desired := hashes[id]

		for _, machine := range r.Machine {
			var entry *ResourceLock
			if lock, ok := locks[machine]; ok && lock != nil {
				if e, ok := lock.Resources.Get(id); ok {
					entry = &e
				}
			}
			action := determineAction(entry, desired, r.State)
			plan.Changes = append(plan.Changes, PlannedChange{
				ResourceID:  id,
				Machine:     machine,
				Kind:        r.Kind,
				Action:      action,
				DesiredHash: desired,
			})
		}
	}
	return plan, nil
}
