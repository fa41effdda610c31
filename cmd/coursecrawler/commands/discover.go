package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var discoverOutput string

func init() {
	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", defaultTreePath, "Where to write the course tree.")
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover [--output <path/to/courses.json>]",
	Short: "Logs in and writes the course, section and activity tree.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		doc, err := p.Discover(cmd.Context(), cfg.Browser.Headless)
		if err != nil {
			return err
		}
		if err := p.SaveTree(discoverOutput, doc); err != nil {
			return err
		}
		slog.Info("课程树已保存", slog.String("path", discoverOutput), slog.Int("courses", len(doc.Courses)))
		renderTree(stdout, doc)
		return nil
	},
}
