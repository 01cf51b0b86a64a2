package core

import "sort"

// DriftStatus is one of the four classifications a resource's live lock
// entry can fall into relative to its current desired-state hash.
type DriftStatus string

const (
	DriftOK             DriftStatus = "ok"
	DriftDrifted        DriftStatus = "drifted"
	DriftMissingInLock  DriftStatus = "missing_in_lock"
	DriftStaleInLock    DriftStatus = "stale_in_lock"
)

// DriftResult is one resource-on-machine classification.
type DriftResult struct {
	ResourceID string
	Machine    string
	Kind       ResourceKind
	Status     DriftStatus
}

// CheckDrift compares every declared resource's current desired-state hash
// against each target machine's lock, in both directions: resources the
// config declares but the lock never recorded (missing_in_lock), and lock
// entries whose resource no longer appears in the config at all
// (stale_in_lock) — the case a plain CREATE/UPDATE/NOOP diff never surfaces
// because it only walks the config side.
func CheckDrift(resources *OrderedMap[Resource], order []string, locks map[string]*StateLock) ([]DriftResult, error) {
	hashes, err := DesiredHashes(resources)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]map[string]bool, len(locks))
	var results []DriftResult

	for _, id := range order {
		r, ok := resources.Get(id)
		if !ok {
			continue
		}
		desired := hashes[id]
		for _, machine := range r.Machine {
			if seen[machine] == nil {
				seen[machine] = make(map[string]bool)
			}
			seen[machine][id] = true

			var entry *ResourceLock
			if lock, ok := locks[machine]; ok && lock != nil {
				if e, ok := lock.Resources.Get(id); ok {
					entry = &e
				}
			}

			status := DriftOK
			switch {
			case entry == nil:
				status = DriftMissingInLock
			case entry.Hash != desired:
				status = DriftDrifted
			}
			results = append(results, DriftResult{ResourceID: id, Machine: machine, Kind: r.Kind, Status: status})
		}
	}

	for machine, lock := range locks {
		if lock == nil {
			continue
		}
		for _, id := range lock.Resources.SortedKeys() {
			if seen[machine][id] {
				continue
			}
			entry, _ := lock.Resources.Get(id)
			results = append(results, DriftResult{ResourceID: id, Machine: machine, Kind: entry.Kind, Status: DriftStaleInLock})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Machine != results[j].Machine {
			return results[i].Machine < results[j].Machine
		}
		return results[i].ResourceID < results[j].ResourceID
	})
	return results, nil
}
