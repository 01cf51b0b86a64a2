package core

import (
	"context"
	"fmt"
)

// ScriptRenderer turns one resolved resource into the idempotent shell
// script its Transport will dispatch. Injected rather than imported
// directly so the core package never depends on the codegen package (§9:
// explicit context, not a singleton).
type ScriptRenderer interface {
	Render(r Resource) (string, error)
}

// ApplySummary tallies the outcome of one machine's apply.
type ApplySummary struct {
	Converged int
	Unchanged int
	Skipped   int
	Failed    int
	Aborted   bool
}

// Executor drives one machine's ordered plan through render, dispatch, and
// lock update. Dry-run previews never reach it — the caller prints the plan
// and renders its scripts itself, and never constructs an Executor for that
// invocation.
type Executor struct {
	Transport Transport
	Renderer  ScriptRenderer
	RunID     string
}

func NewExecutor(transport Transport, renderer ScriptRenderer, runID string) *Executor {
	return &Executor{Transport: transport, Renderer: renderer, RunID: runID}
}

// buildDependents maps each resource to the set of resources that directly
// name it in depends_on, the inverse of the edges TopoSort walks.
func buildDependents(resources *OrderedMap[Resource]) map[string][]string {
	out := make(map[string][]string)
	for _, id := range resources.Keys() {
		r, _ := resources.Get(id)
		for _, dep := range r.DependsOn {
			out[dep] = append(out[dep], id)
		}
	}
	return out
}

// transitiveDependents returns every resource that depends, directly or
// through a chain, on the failed resource — the set continue_independent
// must mark Skipped rather than attempt.
func transitiveDependents(failed string, dependents map[string][]string) map[string]bool {
	skip := make(map[string]bool)
	queue := append([]string{}, dependents[failed]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if skip[next] {
			continue
		}
		skip[next] = true
		queue = append(queue, dependents[next]...)
	}
	return skip
}

// ApplyMachine executes one machine's planned changes in order, honoring
// the config's failure policy and the per-resource when gate. A resource
// that fails never gets a lock entry written or overwritten (I5) — only
// its resource_failed event is emitted, and any pre-existing entry stands.
func (e *Executor) ApplyMachine(
	ctx context.Context,
	rc RunContext,
	machine *Machine,
	changes []PlannedChange,
	resources *OrderedMap[Resource],
	params map[string]interface{},
	policy FailurePolicy,
	lock *StateLock,
	log *EventLog,
) (ApplySummary, error) {
	var summary ApplySummary
	dependents := buildDependents(resources)
	skip := make(map[string]bool)

	for _, change := range changes {
		if !rc.IncludesResource(change.ResourceID) {
			continue
		}
		if skip[change.ResourceID] {
			summary.Skipped++
			continue
		}
		r, ok := resources.Get(change.ResourceID)
		if !ok {
			return summary, fmt.Errorf("apply: plan references unknown resource %q", change.ResourceID)
		}

		if change.Action == ActionNoop && !rc.Force {
			summary.Unchanged++
			if err := log.Append(Event{
				Type:     EventResourceConverged,
				Machine:  machine.ID,
				RunID:    e.RunID,
				Resource: change.ResourceID,
				Action:   change.Action,
				Status:   "unchanged",
			}); err != nil {
				return summary, err
			}
			continue
		}

		gateOK, gateErr := EvaluateGate(r.When, params)
		if gateErr != nil {
			return summary, fmt.Errorf("resource %s: %w", change.ResourceID, gateErr)
		}
		if !gateOK {
			summary.Skipped++
			if err := log.Append(Event{
				Type:     EventResourceConverged,
				Machine:  machine.ID,
				RunID:    e.RunID,
				Resource: change.ResourceID,
				Action:   change.Action,
				Status:   "skipped",
			}); err != nil {
				return summary, err
			}
			continue
		}

		if err := log.Append(Event{
			Type:     EventResourceStarted,
			Machine:  machine.ID,
			RunID:    e.RunID,
			Resource: change.ResourceID,
			Action:   change.Action,
		}); err != nil {
			return summary, err
		}

		script, err := e.Renderer.Render(r)
		if err != nil {
			return summary, fmt.Errorf("resource %s: render script: %w", change.ResourceID, err)
		}

		var result ExecResult
		var execErr error
		if r.Kind == KindFile && r.State == "file" && r.Source != "" {
			execErr = e.Transport.CopyFile(ctx, machine, r.Source, r.Path)
		}
		if execErr == nil {
			result, execErr = e.Transport.Execute(ctx, machine, script)
		}
		failed := execErr != nil || result.ExitCode != 0
		if failed {
			summary.Failed++
			detail := ""
			if execErr != nil {
				detail = execErr.Error()
			} else {
				detail = fmt.Sprintf("exit %d: %s", result.ExitCode, result.Stderr)
			}
			if err := log.Append(Event{
				Type:     EventResourceFailed,
				Machine:  machine.ID,
				RunID:    e.RunID,
				Resource: change.ResourceID,
				Action:   change.Action,
				Error:    detail,
			}); err != nil {
				return summary, err
			}

			if policy == PolicyContinueIndependent {
				for dep := range transitiveDependents(change.ResourceID, dependents) {
					skip[dep] = true
				}
				continue
			}
			summary.Aborted = true
			return summary, nil
		}

		RecordSuccess(lock, change.ResourceID, ResourceLock{
			Kind:       change.Kind,
			Status:     StatusConverged,
			Hash:       change.DesiredHash,
			DurationMS: result.Duration.Milliseconds(),
		})
		summary.Converged++

		if err := log.Append(Event{
			Type:     EventResourceConverged,
			Machine:  machine.ID,
			RunID:    e.RunID,
			Resource: change.ResourceID,
			Action:   change.Action,
			Status:   "converged",
		}); err != nil {
			return summary, err
		}
	}
	return summary, nil
}
