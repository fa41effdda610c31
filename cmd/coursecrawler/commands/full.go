package commands

import (
	"github.com/spf13/cobra"
)

var (
	fullOutput       string
	fullSkipExisting bool
)

func init() {
	fullCmd.Flags().StringVarP(&fullOutput, "output", "o", defaultTreePath, "Where to write the course tree.")
	fullCmd.Flags().BoolVar(&fullSkipExisting, "skip-existing", true, "Skip activities that already have a file in their folder.")
	rootCmd.AddCommand(fullCmd)
}

var fullCmd = &cobra.Command{
	Use:   "full",
	Short: "Discovers the course tree, saves it and downloads all resources in one session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		doc, stats, err := p.Full(cmd.Context(), cfg.Browser.Headless, fullOutput, fullSkipExisting)
		if doc != nil {
			renderTree(stdout, doc)
			renderStats(stdout, stats)
		}
		return err
	},
}
