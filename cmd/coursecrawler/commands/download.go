package commands

import (
	"github.com/spf13/cobra"
)

var (
	downloadInput string
	skipExisting  bool
)

func init() {
	downloadCmd.Flags().StringVarP(&downloadInput, "input", "i", defaultTreePath, "Course tree written by discover.")
	downloadCmd.Flags().BoolVar(&skipExisting, "skip-existing", true, "Skip activities that already have a file in their folder.")
	rootCmd.AddCommand(downloadCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download [--input <path/to/courses.json>]",
	Short: "Logs in again and downloads every resource in a saved course tree.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		doc, err := p.LoadTree(downloadInput)
		if err != nil {
			return err
		}
		stats, err := p.Acquire(cmd.Context(), doc, cfg.Browser.Headless, skipExisting)
		renderStats(stdout, stats)
		return err
	},
}
