package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forjar/forjar/internal/codegen"
	"github.com/forjar/forjar/internal/core"
	"github.com/forjar/forjar/internal/transport"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Converge every targeted machine toward its desired state",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		stateDir, _ := cmd.Flags().GetString("state-dir")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")
		machineFilter, _ := cmd.Flags().GetString("machine")
		resourceFilter, _ := cmd.Flags().GetString("resource")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cfg, err := loadAndResolve(path)
		if err != nil {
			return err
		}
		order, err := core.TopoSort(cfg.Resources)
		if err != nil {
			return err
		}
		locks, err := loadLocks(stateDir, cfg)
		if err != nil {
			return err
		}
		plan, err := core.ComputePlan(cfg.Resources, order, locks)
		if err != nil {
			return err
		}

		rc := core.RunContext{
			StateDir:       stateDir,
			Force:          force,
			DryRun:         dryRun,
			MachineFilter:  machineFilter,
			ResourceFilter: resourceFilter,
		}

		if dryRun {
			pterm.Info.Println("dry run: no machine will be touched")
			dryRenderer := codegen.NewRenderer()
			for _, machine := range machinesInPlan(plan) {
				if !rc.IncludesMachine(machine) {
					continue
				}
				pterm.DefaultHeader.Println(machine)
				for _, c := range plan.ForMachine(machine) {
					if c.Action != core.ActionNoop {
						fmt.Printf("  %-8s %s (%s)\n", c.Action, c.ResourceID, c.Kind)
						r, _ := cfg.Resources.Get(c.ResourceID)
						if _, err := dryRenderer.Render(r); err != nil {
							return err
						}
					}
				}
			}
			return nil
		}

		runID := core.NewRunID()
		renderer := codegen.NewRenderer()
		failurePolicy := cfg.Policy.FailureOrDefault()

		var aborted bool
		for _, id := range machines(cfg) {
			if !rc.IncludesMachine(id) {
				continue
			}
			changes := plan.ForMachine(id)
			if len(changes) == 0 {
				continue
			}

			machine := resolveMachine(cfg, id)
			log.Debug("dispatching machine", "machine", id, "changes", len(changes))
			tr := transport.ForMachine(machine)
			lock := locks[id]
			if lock == nil {
				lock = core.NewStateLock(id, machine.Addr)
			}

			evtLog, err := core.OpenEventLog(stateDir, id)
			if err != nil {
				return err
			}

			executor := core.NewExecutor(tr, renderer, runID)
			_ = evtLog.Append(core.Event{Type: core.EventApplyStarted, Machine: id, RunID: runID})

			summary, err := executor.ApplyMachine(ctx, rc, machine, changes, cfg.Resources, cfg.Params, failurePolicy, lock, evtLog)
			if err != nil {
				_ = evtLog.Close()
				return fmt.Errorf("apply on %s: %w", id, err)
			}

			if cfg.Policy.LockFileEnabled() {
				if err := core.SaveStateLock(stateDir, lock); err != nil {
					_ = evtLog.Close()
					return fmt.Errorf("saving lock for %s: %w", id, err)
				}
			}

			evt := core.EventApplyCompleted
			if summary.Aborted {
				evt = core.EventApplyAborted
				aborted = true
			}
			_ = evtLog.Append(core.Event{
				Type: evt, Machine: id, RunID: runID,
				Converged: summary.Converged, Unchanged: summary.Unchanged,
				Skipped: summary.Skipped, Failed: summary.Failed,
			})
			_ = evtLog.Close()

			pterm.DefaultHeader.Println(id)
			pterm.Info.Printfln("converged=%d unchanged=%d skipped=%d failed=%d aborted=%v",
				summary.Converged, summary.Unchanged, summary.Skipped, summary.Failed, summary.Aborted)

			if err := tr.Close(); err != nil {
				log.Warn("closing transport", "machine", id, "error", err.Error())
			}
		}

		if aborted {
			return fmt.Errorf("apply aborted on at least one machine")
		}
		return nil
	},
}

func machines(cfg *core.Config) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range cfg.Machines.Keys() {
		seen[m] = true
		out = append(out, m)
	}
	for _, id := range cfg.Resources.Keys() {
		r, _ := cfg.Resources.Get(id)
		for _, m := range r.Machine {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().Bool("dry-run", false, "compute and print the plan without dispatching anything")
	applyCmd.Flags().Bool("force", false, "re-apply every resource regardless of its computed action")
	applyCmd.Flags().String("machine", "", "limit apply to a single machine id")
	applyCmd.Flags().String("resource", "", "limit apply to a single resource id")
}
