package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	ColdsnapVersion, ColdsnapCommit, ColdsnapDate string
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Display version, commit hash, build date, and other build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("coldsnap version: %s\n", ColdsnapVersion)
		fmt.Printf("Commit: %s\n", ColdsnapCommit)
		fmt.Printf("Built: %s\n", ColdsnapDate)
	},
}

func init() {
	rootCommand.AddCommand(versionCommand)
}
