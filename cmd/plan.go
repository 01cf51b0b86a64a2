package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forjar/forjar/internal/codegen"
	"github.com/forjar/forjar/internal/core"
)

const planSummaryTemplate = `{{.Machine}}: {{.Create}} to create, {{.Update}} to update, {{.Destroy}} to destroy, {{.Noop}} unchanged`

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what apply would change without touching any machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		stateDir, _ := cmd.Flags().GetString("state-dir")
		showScripts, _ := cmd.Flags().GetBool("show-scripts")

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

		renderer := codegen.NewRenderer()
		for _, machine := range machinesInPlan(plan) {
			changes := plan.ForMachine(machine)
			counts := map[string]int{}
			for _, c := range changes {
				counts[string(c.Action)]++
			}
			summary, err := core.ExecuteTemplate(planSummaryTemplate, struct {
				Machine, Create, Update, Destroy, Noop interface{}
			}{machine, counts["CREATE"], counts["UPDATE"], counts["DESTROY"], counts["NOOP"]})
			if err != nil {
				return err
			}
			pterm.DefaultHeader.Println(summary)

			for _, c := range changes {
				if c.Action == core.ActionNoop {
					continue
				}
				line := fmt.Sprintf("  %-8s %s (%s)", c.Action, c.ResourceID, c.Kind)
				switch c.Action {
				case core.ActionCreate:
					pterm.Success.Println(line)
				case core.ActionDestroy:
					pterm.Error.Println(line)
				default:
					pterm.Warning.Println(line)
				}
				if showScripts {
					r, _ := cfg.Resources.Get(c.ResourceID)
					script, err := renderer.Render(r)
					if err == nil {
						fmt.Println(core.GenerateDiff(c.ResourceID, "", script))
					}
				}
			}
		}
		return nil
	},
}

func machinesInPlan(plan core.Plan) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range plan.Changes {
		if !seen[c.Machine] {
			seen[c.Machine] = true
			out = append(out, c.Machine)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().Bool("show-scripts", false, "print the generated script for each non-noop change")
}
