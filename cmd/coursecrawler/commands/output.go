package commands

import (
	"io"
	"os"

	"github.com/LouYuanbo1/coursecrawler/internal/domain/model"
	"github.com/LouYuanbo1/coursecrawler/internal/service/pipeline"
	"github.com/jedib0t/go-pretty/v6/table"
)

const defaultTreePath = "data/moodle_courses.json"

func newPipeline() (*pipeline.Pipeline, error) {
	return pipeline.New(cfg, nil, nil, nil)
}

func renderTree(w io.Writer, doc *model.CourseTree) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Course", "ID", "Sections", "Activities", "Downloadable"})
	for _, c := range doc.Courses {
		activities, downloadable := 0, 0
		for _, s := range c.Sections {
			activities += len(s.Activities)
			downloadable += len(s.Downloadable())
		}
		t.AppendRow(table.Row{c.Name, c.IDOr("-"), len(c.Sections), activities, downloadable})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderStats(w io.Writer, stats model.RunStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Courses", "Total", "Downloaded", "Skipped", "Failed"})
	t.AppendRow(table.Row{stats.Courses, stats.Total, stats.Downloaded, stats.Skipped, stats.Failed})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var stdout io.Writer = os.Stdout
