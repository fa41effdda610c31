package tree

import (
	"strings"
	"testing"
	"time"

	"github.com/LouYuanbo1/coursecrawler/internal/domain/model"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStoreWithFS(fs)

	doc := &model.CourseTree{
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		BaseURL:   "https://moodle.example.edu",
		Username:  "110753000",
		Courses: []*model.Course{
			{
				ID:   model.StringPtr("42"),
				Name: "資料結構 <進階>",
				URL:  "https://moodle.example.edu/course/view.php?id=42",
				Sections: []*model.Section{
					{
						Index: 0,
						Activities: []*model.Activity{
							{Name: "Syllabus", URL: "https://moodle.example.edu/mod/resource/view.php?id=1", Type: model.KindResource},
						},
					},
					{
						Index:      1,
						Title:      model.StringPtr("Week 1"),
						Activities: []*model.Activity{},
					},
				},
			},
			{Name: "No ID", URL: "https://moodle.example.edu/course/x", Sections: []*model.Section{}},
		},
	}

	require.NoError(t, store.Save("out/moodle_courses.json", doc))

	raw, err := afero.ReadFile(fs, "out/moodle_courses.json")
	require.NoError(t, err)
	require.True(t, strings.Contains(string(raw), "資料結構 <進階>"))
	require.Contains(t, string(raw), `"id": null`)
	require.Contains(t, string(raw), `"title": null`)
	require.Contains(t, string(raw), `"base_url": "https://moodle.example.edu"`)

	loaded, err := store.Load("out/moodle_courses.json")
	require.NoError(t, err)
	if diff := cmp.Diff(doc, loaded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadNormalizesKinds(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "tree.json", []byte(`{
		"timestamp": "2026-03-01T10:00:00Z",
		"base_url": "https://moodle.example.edu",
		"username": "u",
		"courses": [{"id": "7", "name": "C", "url": "https://moodle.example.edu/course/view.php?id=7",
			"sections": [{"index": 0, "title": "Intro", "activities": [
				{"name": "A", "url": "https://moodle.example.edu/a", "type": "lesson"},
				{"name": "B", "url": "https://moodle.example.edu/b", "type": "folder"}
			]}]},
			{"id": null, "name": "D", "url": "https://moodle.example.edu/d"}]
	}`), 0o644))

	doc, err := NewStoreWithFS(fs).Load("tree.json")
	require.NoError(t, err)
	require.Len(t, doc.Courses, 2)
	acts := doc.Courses[0].Sections[0].Activities
	require.Equal(t, model.KindUnknown, acts[0].Type)
	require.Equal(t, model.KindFolder, acts[1].Type)
	require.Nil(t, doc.Courses[1].ID)
	require.NotNil(t, doc.Courses[1].Sections)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewStoreWithFS(afero.NewMemMapFs()).Load("missing.json")
	require.Error(t, err)
}
