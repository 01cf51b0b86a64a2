package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load, expand, and structurally validate a config document",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := loadAndResolve(path)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("%s is valid: %d machine(s), %d resource(s)", path, cfg.Machines.Len(), cfg.Resources.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
