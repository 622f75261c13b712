package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrumlink/scrumlink/pkg/buildinfo"
)

// VersionCmd prints build information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputJSON {
			return printJSON(buildinfo.Get("scrumlink"))
		}
		fmt.Printf("scrumlink %s\n", buildinfo.String())
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
}
