// Package commands implements the CLI of the secret operator.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "secret-operator",
	Short: "Provisions Kerberos keytabs for cluster workloads",
	Long: `The secret operator provisions Kerberos principals and issues their keytabs
to pods through a CSI driver. Principal keys are created once per service and
cached in a Kubernetes Secret so every replica receives the same keytab.

Use "secret-operator [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment and built-in defaults)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
