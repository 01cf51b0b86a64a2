package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forjar/forjar/internal/core"
)

var rootCmd = &cobra.Command{
	Use:   "forjar",
	Short: "Declarative, agentless convergence for machines you name in YAML.",
	Long:  `forjar reads a desired-state document, plans the drift against what it last converged, and dispatches idempotent scripts to bring each machine into line.`,
}

var verboseCount int

// log is the CLI's own diagnostic logger, distinct from pterm's
// result-oriented success/warning/error lines. Verbosity is set once flags
// are parsed, in rootCmd's PersistentPreRun.
var log core.Logger

func Execute() error {
	return rootCmd.Execute()
}

func verbosityToLevel(count int) core.LogLevel {
	switch {
	case count >= 2:
		return core.LevelTrace
	case count == 1:
		return core.LevelDebug
	default:
		return core.LevelInfo
	}
}

func init() {
	log = core.NewDefaultLogger(os.Stderr, core.LevelInfo)
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		log.SetLevel(verbosityToLevel(verboseCount))
	}

	pterm.SetDefaultOutput(os.Stderr)
	pterm.Success.Writer = os.Stderr
	pterm.Info.Writer = os.Stderr
	pterm.Error.Writer = os.Stderr
	pterm.Warning.Writer = os.Stderr
	pterm.DefaultHeader.Writer = os.Stderr

	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringP("config", "c", "forjar.yaml", "config file path")
	rootCmd.PersistentFlags().String("state-dir", "state", "directory holding per-machine lock and event log files")
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v", "increase verbosity level (-v, -vv, -vvv)")
}
