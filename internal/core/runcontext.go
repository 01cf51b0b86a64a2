package core

// RunContext carries the per-invocation settings the executor needs beyond
// what lives in the config document itself: where state is persisted and
// which CLI flags narrow or force this particular apply. It is passed
// explicitly through every call rather than stashed in a package-level
// singleton (§9 design note: explicit context, not a singleton).
type RunContext struct {
	StateDir       string
	Force          bool
	DryRun         bool
	MachineFilter  string
	ResourceFilter string
}

// IncludesMachine reports whether a machine passes this run's --machine filter.
func (r RunContext) IncludesMachine(machine string) bool {
	return r.MachineFilter == "" || r.MachineFilter == machine
}

// IncludesResource reports whether a resource passes this run's --resource filter.
func (r RunContext) IncludesResource(resource string) bool {
	return r.ResourceFilter == "" || r.ResourceFilter == resource
}
