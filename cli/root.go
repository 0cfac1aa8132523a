package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is a root of all commands.
var rootCmd = &cobra.Command{
	Use:   "vinum [command] [flags]",
	Short: "vinum volume manager command-line interface",
	Long:  `vinum volume manager command-line interface`,
	Run:   rootCmdRun,
}

func rootCmdRun(cmd *cobra.Command, args []string) {
	cmd.Help()
}

// Execute runs the command given by the process arguments.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add commands.
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(setstateCmd)
}
