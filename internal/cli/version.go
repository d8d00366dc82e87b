package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ccguard version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ccguard %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
