package core

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ResourceKind is the closed set of primitive resource tags plus the
// recipe-instance tag resolved away during expansion.
type ResourceKind string

const (
	KindPackage ResourceKind = "package"
	KindFile    ResourceKind = "file"
	KindService ResourceKind = "service"
	KindMount   ResourceKind = "mount"
	KindRecipe  ResourceKind = "recipe"
)

// MachineRef accepts either a single machine id or a list of ids in YAML.
type MachineRef []string

func (m *MachineRef) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*m = MachineRef{s}
	case yaml.SequenceNode:
		var ss []string
		if err := value.Decode(&ss); err != nil {
			return err
		}
		*m = MachineRef(ss)
	default:
		return fmt.Errorf("machine: expected a scalar id or a list of ids")
	}
	return nil
}

func (m MachineRef) MarshalYAML() (interface{}, error) {
	if len(m) == 1 {
		return m[0], nil
	}
	return []string(m), nil
}

// Machine is a convergence target.
type Machine struct {
	ID       string   `yaml:"-"`
	Hostname string   `yaml:"hostname"`
	Addr     string   `yaml:"addr"`
	User     string   `yaml:"user,omitempty"`
	Arch     string   `yaml:"arch,omitempty"`
	SSHKey   string   `yaml:"ssh_key,omitempty"`
	Roles    []string `yaml:"roles,omitempty"`
}

// EffectiveUser returns the configured user, or the documented default.
func (m Machine) EffectiveUser() string {
	if m.User == "" {
		return "root"
	}
	return m.User
}

// IsLocal reports whether this machine's address routes through the local
// transport instead of SSH.
func (m Machine) IsLocal() bool {
	return m.Addr == "127.0.0.1" || m.Addr == "localhost"
}

// Resource is the tagged union over the five resource kinds. Only the
// fields relevant to Kind are populated; package config's Validate enforces
// which ones are required per kind.
type Resource struct {
	ID        string       `yaml:"-"`
	Kind      ResourceKind `yaml:"type"`
	Machine   MachineRef   `yaml:"machine"`
	DependsOn []string     `yaml:"depends_on,omitempty"`
	When      string       `yaml:"when,omitempty"`

	// package
	Provider string   `yaml:"provider,omitempty"`
	Packages []string `yaml:"packages,omitempty"`

	// file / service / mount share State with different enumerations.
	State string `yaml:"state,omitempty"`

	// file
	Path    string `yaml:"path,omitempty"`
	Content string `yaml:"content,omitempty"`
	Source  string `yaml:"source,omitempty"`
	Target  string `yaml:"target,omitempty"`
	Owner   string `yaml:"owner,omitempty"`
	Group   string `yaml:"group,omitempty"`
	Mode    string `yaml:"mode,omitempty"`

	// service
	Name      string   `yaml:"name,omitempty"`
	Enabled   *bool    `yaml:"enabled,omitempty"`
	RestartOn []string `yaml:"restart_on,omitempty"`

	// mount (Path above is the mount point, Target the device)
	FSType  string `yaml:"fstype,omitempty"`
	Options string `yaml:"options,omitempty"`

	// recipe instance, resolved away by expansion before the resolver runs
	RecipeSource string                 `yaml:"source_recipe,omitempty"`
	Inputs       map[string]interface{} `yaml:"inputs,omitempty"`
}

// FailurePolicy controls what happens to the remaining plan after a resource fails.
type FailurePolicy string

const (
	PolicyStopOnFirst         FailurePolicy = "stop_on_first"
	PolicyContinueIndependent FailurePolicy = "continue_independent"
)

// Policy is the optional per-config apply policy block.
type Policy struct {
	Failure  FailurePolicy `yaml:"failure,omitempty"`
	Tripwire *bool         `yaml:"tripwire,omitempty"`
	LockFile *bool         `yaml:"lock_file,omitempty"`
}

func (p *Policy) FailureOrDefault() FailurePolicy {
	if p == nil || p.Failure == "" {
		return PolicyStopOnFirst
	}
	return p.Failure
}

func (p *Policy) TripwireEnabled() bool {
	return p == nil || p.Tripwire == nil || *p.Tripwire
}

func (p *Policy) LockFileEnabled() bool {
	return p == nil || p.LockFile == nil || *p.LockFile
}

// Config is the fully decoded top-level document.
type Config struct {
	Version     string                 `yaml:"version"`
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description,omitempty"`
	Params      map[string]interface{} `yaml:"params,omitempty"`
	Machines    *OrderedMap[Machine]    `yaml:"machines"`
	Resources   *OrderedMap[Resource]   `yaml:"resources"`
	Policy      *Policy                `yaml:"policy,omitempty"`
}

// PlanAction is the diff outcome of a single resource against the lock.
type PlanAction string

const (
	ActionCreate  PlanAction = "CREATE"
	ActionUpdate  PlanAction = "UPDATE"
	ActionNoop    PlanAction = "NOOP"
	ActionDestroy PlanAction = "DESTROY"
)

// PlannedChange is one entry of a Plan.
type PlannedChange struct {
	ResourceID  string
	Machine     string
	Kind        ResourceKind
	Action      PlanAction
	DesiredHash string
}

// Plan is the resolver+planner output, in topological order.
type Plan struct {
	Changes []PlannedChange
}

// ForMachine returns the subsequence of changes targeting one machine,
// preserving relative order.
func (p Plan) ForMachine(machine string) []PlannedChange {
	var out []PlannedChange
	for _, c := range p.Changes {
		if c.Machine == machine {
			out = append(out, c)
		}
	}
	return out
}

// ResourceStatus is the terminal lock status for a resource.
type ResourceStatus string

const (
	StatusConverged ResourceStatus = "converged"
)

// ResourceLock is one machine's persisted record for one resource.
type ResourceLock struct {
	Kind       ResourceKind      `yaml:"kind"`
	Status     ResourceStatus    `yaml:"status"`
	Hash       string            `yaml:"hash"`
	Timestamp  string            `yaml:"timestamp"`
	DurationMS int64             `yaml:"duration_ms"`
	Details    map[string]string `yaml:"details,omitempty"`
}

// StateLock is the full per-machine lock document.
type StateLock struct {
	Schema      string                    `yaml:"schema"`
	Machine     string                    `yaml:"machine"`
	Hostname    string                    `yaml:"hostname,omitempty"`
	Generator   string                    `yaml:"generator"`
	GeneratedAt string                    `yaml:"generated_at"`
	Resources   *OrderedMap[ResourceLock] `yaml:"resources"`
}

// EventType enumerates the JSONL event tags.
type EventType string

const (
	EventApplyStarted      EventType = "apply_started"
	EventResourceStarted   EventType = "resource_started"
	EventResourceConverged EventType = "resource_converged"
	EventResourceFailed    EventType = "resource_failed"
	EventApplyCompleted    EventType = "apply_completed"
	EventApplyAborted      EventType = "apply_aborted"
)

// Event is a single JSONL record. Fields are flattened rather than nested
// per event type (the same tagged-union rationale spec.md applies to
// resource kinds), since Go's encoding/json has no native sum type and the
// corpus never reaches for a library that adds one.
type Event struct {
	Timestamp     string     `json:"ts"`
	Type          EventType  `json:"event"`
	Machine       string     `json:"machine,omitempty"`
	RunID         string     `json:"run_id,omitempty"`
	Resource      string     `json:"resource,omitempty"`
	Action        PlanAction `json:"action,omitempty"`
	Status        string     `json:"status,omitempty"`
	Error         string     `json:"error,omitempty"`
	Converged     int        `json:"converged,omitempty"`
	Unchanged     int        `json:"unchanged,omitempty"`
	Skipped       int        `json:"skipped,omitempty"`
	Failed        int        `json:"failed,omitempty"`
	ForjarVersion string     `json:"forjar_version,omitempty"`
}

// RecipeInputType is the closed set of typed recipe input declarations.
type RecipeInputType string

const (
	InputString  RecipeInputType = "string"
	InputInteger RecipeInputType = "integer"
	InputBoolean RecipeInputType = "boolean"
	InputPath    RecipeInputType = "path"
	InputEnum    RecipeInputType = "enum"
	InputList    RecipeInputType = "list"
)

// RecipeInput is one declared, typed, constrained recipe parameter.
type RecipeInput struct {
	Type      RecipeInputType `yaml:"type"`
	Required  bool            `yaml:"required,omitempty"`
	Default   interface{}     `yaml:"default,omitempty"`
	Min       *float64        `yaml:"min,omitempty"`
	Max       *float64        `yaml:"max,omitempty"`
	MinLength *int            `yaml:"min_length,omitempty"`
	MaxLength *int            `yaml:"max_length,omitempty"`
	Pattern   string          `yaml:"pattern,omitempty"`
	Choices   []string        `yaml:"choices,omitempty"`
	MustExist bool            `yaml:"must_exist,omitempty"`
}

// RecipeMetadata is the recipe's own header block.
type RecipeMetadata struct {
	Name     string                 `yaml:"name"`
	Version  string                 `yaml:"version"`
	Inputs   map[string]RecipeInput `yaml:"inputs,omitempty"`
	Requires []string               `yaml:"requires,omitempty"`
}

// RecipeFile is a fully decoded recipe document.
type RecipeFile struct {
	Recipe    RecipeMetadata        `yaml:"recipe"`
	Resources *OrderedMap[Resource] `yaml:"resources"`
}
