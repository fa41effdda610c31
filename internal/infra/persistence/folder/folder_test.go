package folder

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/LouYuanbo1/coursecrawler/internal/domain/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var partial = []string{".crdownload", ".tmp", ".part"}

func TestSanitize(t *testing.T) {
	got := Sanitize("a/b:c*d", DefaultMaxNameLength)
	require.False(t, strings.ContainsAny(got, `<>:"/\|?*`))
	require.Equal(t, "a_b_c_d", got)

	require.Equal(t, "Lecture 1", Sanitize("  Lecture 1 \t", DefaultMaxNameLength))
	require.Equal(t, "a_b", Sanitize("a\x00b", DefaultMaxNameLength))
	require.Equal(t, "_", Sanitize("   ", DefaultMaxNameLength))

	long := strings.Repeat("x", 246) + ".pdf"
	require.Equal(t, 250, len(long))
	cut := Sanitize(long, DefaultMaxNameLength)
	require.LessOrEqual(t, utf8.RuneCountInString(cut), 200)
	require.True(t, strings.HasSuffix(cut, ".pdf"))

	wide := strings.Repeat("講", 220) + ".pptx"
	cut = Sanitize(wide, DefaultMaxNameLength)
	require.Equal(t, 200, utf8.RuneCountInString(cut))
	require.True(t, strings.HasSuffix(cut, ".pptx"))
}

func TestLayoutSectionNames(t *testing.T) {
	layout, err := NewLayout("downloads", 200, `(?i)week|週`)
	require.NoError(t, err)

	course := &model.Course{Name: "Data Structures: Fall"}
	cases := []struct {
		section *model.Section
		want    string
	}{
		{&model.Section{Index: 0}, "Section00"},
		{&model.Section{Index: 1, Title: model.StringPtr("Week 3")}, "Week01"},
		{&model.Section{Index: 2, Title: model.StringPtr("第 2 週")}, "Week02"},
		{&model.Section{Index: 3, Title: model.StringPtr("Midterm / Review")}, "Midterm _ Review"},
		{&model.Section{Index: 12, Title: model.StringPtr("  ")}, "Section12"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, layout.SectionName(c.section))
	}
	require.Equal(t,
		filepath.Join("downloads", "Data Structures_ Fall", "Week01"),
		layout.SectionDir(course, cases[1].section))
}

func TestNewLayoutBadPattern(t *testing.T) {
	_, err := NewLayout("d", 200, "(")
	require.Error(t, err)
}

func TestHasPrefix(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStoreWithFS(fs, partial)

	ok, err := store.HasPrefix("course/Week01", "Slides")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Ensure("course/Week01"))
	require.NoError(t, afero.WriteFile(fs, "course/Week01/Slides.pdf.crdownload", []byte("x"), 0o644))
	ok, err = store.HasPrefix("course/Week01", "Slides")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, afero.WriteFile(fs, "course/Week01/Slides.pdf", []byte("x"), 0o644))
	ok, err = store.HasPrefix("course/Week01", "Slides")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDiff(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStoreWithFS(fs, partial)
	dir := "course/Section00"
	require.NoError(t, store.Ensure(dir))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "old.pdf"), []byte("x"), 0o644))

	before, err := store.Snapshot(dir)
	require.NoError(t, err)

	newest, pending, err := store.Diff(dir, before)
	require.NoError(t, err)
	require.Empty(t, newest)
	require.False(t, pending)

	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "new.pdf.crdownload"), []byte("x"), 0o644))
	newest, pending, err = store.Diff(dir, before)
	require.NoError(t, err)
	require.Empty(t, newest)
	require.True(t, pending)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "a.pdf"), []byte("x"), 0o644))
	require.NoError(t, fs.Chtimes(filepath.Join(dir, "a.pdf"), base, base))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "b.pdf"), []byte("x"), 0o644))
	require.NoError(t, fs.Chtimes(filepath.Join(dir, "b.pdf"), base.Add(time.Second), base.Add(time.Second)))

	newest, pending, err = store.Diff(dir, before)
	require.NoError(t, err)
	require.False(t, pending)
	require.Equal(t, filepath.Join(dir, "b.pdf"), newest)
}
