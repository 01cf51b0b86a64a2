package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forjar/forjar/internal/config"
	"github.com/forjar/forjar/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print each machine's last converged lock state",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		stateDir, _ := cmd.Flags().GetString("state-dir")

		cfg, err := loadAndResolve(path)
		if err != nil {
			return err
		}

		for _, id := range config.SortedMachineIDs(cfg) {
			lock, err := core.LoadStateLock(stateDir, id)
			if err != nil {
				return err
			}
			if lock == nil {
				pterm.Warning.Printfln("%s: never applied", id)
				continue
			}
			pterm.DefaultHeader.Println(id)
			pterm.Info.Printfln("generated_at=%s generator=%s resources=%d", lock.GeneratedAt, lock.Generator, lock.Resources.Len())
			for _, rid := range lock.Resources.Keys() {
				entry, _ := lock.Resources.Get(rid)
				pterm.Println(pterm.Sprintf("  %-24s %-10s hash=%s converged_at=%s", rid, entry.Kind, entry.Hash[:12], entry.Timestamp))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
