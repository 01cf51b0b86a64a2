package cmd

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forjar/forjar/internal/config"
	"github.com/forjar/forjar/internal/core"
)

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Report how each declared resource's actual lock entry compares to its desired hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		stateDir, _ := cmd.Flags().GetString("state-dir")
		concurrent, _ := cmd.Flags().GetBool("concurrent")
		tripwireFlag, _ := cmd.Flags().GetBool("tripwire")

		cfg, err := loadAndResolve(path)
		if err != nil {
			return err
		}
		order, err := core.TopoSort(cfg.Resources)
		if err != nil {
			return err
		}

		// Drift checking only reads lock files, never writes them, so fanning
		// the per-machine load out across goroutines is safe without a
		// dependency the corpus never imports for this — plain sync.WaitGroup
		// is enough for a handful of files per run.
		machineIDs := config.SortedMachineIDs(cfg)
		locks := make(map[string]*core.StateLock, len(machineIDs))
		if concurrent {
			var mu sync.Mutex
			var wg sync.WaitGroup
			errs := make(chan error, len(machineIDs))
			for _, id := range machineIDs {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					lock, err := core.LoadStateLock(stateDir, id)
					if err != nil {
						errs <- err
						return
					}
					mu.Lock()
					locks[id] = lock
					mu.Unlock()
				}(id)
			}
			wg.Wait()
			close(errs)
			if err := <-errs; err != nil {
				return err
			}
		} else {
			for _, id := range machineIDs {
				lock, err := core.LoadStateLock(stateDir, id)
				if err != nil {
					return err
				}
				locks[id] = lock
			}
		}

		results, err := core.CheckDrift(cfg.Resources, order, locks)
		if err != nil {
			return err
		}

		counts := map[core.DriftStatus]int{}
		for _, r := range results {
			counts[r.Status]++
			line := "  " + r.Machine + " " + r.ResourceID + " (" + string(r.Kind) + ")"
			switch r.Status {
			case core.DriftOK:
				continue
			case core.DriftDrifted:
				pterm.Warning.Println(line)
			case core.DriftMissingInLock:
				pterm.Info.Println(line)
			case core.DriftStaleInLock:
				pterm.Error.Println(line)
			}
		}
		pterm.DefaultHeader.Println("drift summary")
		pterm.Println(pterm.Sprintf("ok=%d drifted=%d missing_in_lock=%d stale_in_lock=%d",
			counts[core.DriftOK], counts[core.DriftDrifted], counts[core.DriftMissingInLock], counts[core.DriftStaleInLock]))

		tripwire := tripwireFlag && cfg.Policy.TripwireEnabled()
		notOK := counts[core.DriftDrifted] + counts[core.DriftMissingInLock] + counts[core.DriftStaleInLock]
		if tripwire && notOK > 0 {
			return fmt.Errorf("tripwire: %d resource(s) not converged with their lock entry", notOK)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(driftCmd)
	driftCmd.Flags().Bool("concurrent", false, "load per-machine lock files concurrently")
	driftCmd.Flags().Bool("tripwire", false, "exit non-zero if any resource is drifted, missing, or stale in the lock")
}
