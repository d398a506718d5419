// Command swotctl runs analyses and renders reports without the web server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swotctl",
	Short: "StrategIQ SWOT command line tools",
	Long: `swotctl runs SWOT analyses from the terminal, renders saved analyses
to PDF and prints the content fingerprint used by the report cache.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newAnalyzeCmd(), newRenderCmd(), newFingerprintCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
