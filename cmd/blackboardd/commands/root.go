package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "blackboardd",
	Short: "Blackboard orchestration engine for campus-safety tip ingestion",
	Long: `blackboardd runs the campus-safety blackboard: reports come in as tips,
a set of independent knowledge sources react to graph changes in priority
order, and the resulting case graph and alerts stream out to subscribers.`,
	Version: version,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo stamps build-time version metadata onto the root command.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to engine config YAML (defaults built in if omitted)")
}
