package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
	"github.com/LouYuanbo1/coursecrawler/internal/domain/model"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/chrome/chrometest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const base = "https://moodle.example.edu"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Portal.BaseURL = base
	cfg.Portal.Username = "student"
	cfg.Portal.Password = "secret"
	cfg.Portal.DownloadDir = "downloads"
	cfg.Timing = config.TimingConfig{
		SSOProbe:        config.Duration(20 * time.Millisecond),
		LoginFormWait:   config.Duration(50 * time.Millisecond),
		LoginMarkerWait: config.Duration(100 * time.Millisecond),
		ClickSettle:     config.Duration(5 * time.Millisecond),
		DownloadWait:    config.Duration(100 * time.Millisecond),
		PollInterval:    config.Duration(10 * time.Millisecond),
	}
	return cfg
}

func courseHTML(id int) string {
	return fmt.Sprintf(`<html><body><ul>
<li class="section main"><ul>
  <li class="activity resource modtype_resource"><a href="/mod/resource/view.php?id=%d1"><span class="instancename">Intro %d<span class="accesshide "> File</span></span></a></li>
</ul></li>
<li class="section main"><h3 class="sectionname">Week 3</h3><ul>
  <li class="activity resource modtype_resource"><a href="/mod/resource/view.php?id=%d2"><span class="instancename">Notes %d<span class="accesshide "> File</span></span></a></li>
  <li class="activity forum modtype_forum"><a href="/mod/forum/view.php?id=%d3">Forum %d</a></li>
</ul></li>
</ul></body></html>`, id, id, id, id, id, id)
}

// fakePortal 登录页、个人主页、两门课程,以及点击后把文件写入当前下载目录的资源页
func fakePortal(cfg *config.Config, fs afero.Fs, loginOK bool) *chrometest.Crawler {
	sel := cfg.Selectors
	fake := chrometest.New()
	fake.AddPage(base, &chrometest.Page{
		Elements: map[string]time.Duration{sel.UsernameInput: 0, sel.PasswordInput: 0, sel.SubmitButton: 0},
		OnClick: map[string]func(c *chrometest.Crawler){
			sel.SubmitButton: func(c *chrometest.Crawler) {
				if loginOK {
					c.Show(sel.LoggedInMarker, 10*time.Millisecond)
				}
			},
		},
	})
	fake.AddPage(base+"/my/", &chrometest.Page{HTML: `<html><body>
<div class="coursename"><a href="/course/view.php?id=1">Algorithms</a></div>
<div class="coursename"><a href="/course/view.php?id=2">Operating Systems</a></div>
</body></html>`})

	download := chrome.PartialLinkText(sel.DownloadText).Query
	for _, id := range []int{1, 2} {
		fake.AddPage(fmt.Sprintf("%s/course/view.php?id=%d", base, id), &chrometest.Page{HTML: courseHTML(id)})
		for _, name := range []string{"Intro", "Notes"} {
			suffix := 1
			if name == "Notes" {
				suffix = 2
			}
			file := fmt.Sprintf("%s %d.pdf", name, id)
			fake.AddPage(fmt.Sprintf("%s/mod/resource/view.php?id=%d%d", base, id, suffix), &chrometest.Page{
				Elements: map[string]time.Duration{download: 0},
				OnClick: map[string]func(c *chrometest.Crawler){
					download: func(c *chrometest.Crawler) {
						dirs := c.DownloadDirs()
						_ = afero.WriteFile(fs, filepath.Join(dirs[len(dirs)-1], file), []byte("%PDF"), 0o644)
					},
				},
			})
		}
	}
	return fake
}

func newPipeline(t *testing.T, loginOK bool) (*Pipeline, *chrometest.Crawler, afero.Fs) {
	t.Helper()
	cfg := testConfig()
	fs := afero.NewMemMapFs()
	fake := fakePortal(cfg, fs, loginOK)
	launch := func(ctx context.Context, cfg *config.Config, headless bool) (chrome.ChromeCrawler, error) {
		return fake, nil
	}
	p, err := New(cfg, launch, fs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return p, fake, fs
}

func TestDiscoverBuildsTree(t *testing.T) {
	p, fake, _ := newPipeline(t, true)

	doc, err := p.Discover(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, base, doc.BaseURL)
	require.Equal(t, "student", doc.Username)
	require.Len(t, doc.Courses, 2)

	for _, course := range doc.Courses {
		require.Len(t, course.Sections, 2)
		require.Equal(t, "Section00", p.layout.SectionName(course.Sections[0]))
		require.Equal(t, "Week01", p.layout.SectionName(course.Sections[1]))
		require.Equal(t, model.KindResource, course.Sections[0].Activities[0].Type)
	}
	require.Equal(t, "1", *doc.Courses[0].ID)
	require.Equal(t, 1, fake.Closed())
}

func TestAcquireIsIdempotent(t *testing.T) {
	p, _, fs := newPipeline(t, true)
	doc, err := p.Discover(context.Background(), true)
	require.NoError(t, err)
	// 链接里屏幕阅读器专用的 " File" 不进入活动名称,否则已下载文件无法按前缀匹配
	require.Equal(t, "Notes 1", doc.Courses[0].Sections[1].Activities[0].Name)

	stats, err := p.Acquire(context.Background(), doc, true, true)
	require.NoError(t, err)
	require.Equal(t, model.RunStats{Total: 4, Downloaded: 4, Courses: 2}, stats)

	ok, err := afero.Exists(fs, filepath.Join("downloads", "Algorithms", "Week01", "Notes 1.pdf"))
	require.NoError(t, err)
	require.True(t, ok)

	stats, err = p.Acquire(context.Background(), doc, true, true)
	require.NoError(t, err)
	require.Equal(t, model.RunStats{Total: 4, Skipped: 4, Courses: 2}, stats)
}

func TestFullSavesTree(t *testing.T) {
	p, fake, _ := newPipeline(t, true)
	output := filepath.Join("data", "moodle_courses.json")

	doc, stats, err := p.Full(context.Background(), true, output, true)
	require.NoError(t, err)
	require.Equal(t, 4, stats.Downloaded)
	require.Equal(t, 1, fake.Closed())

	loaded, err := p.LoadTree(output)
	require.NoError(t, err)
	require.Len(t, loaded.Courses, len(doc.Courses))
	require.True(t, loaded.Timestamp.Equal(doc.Timestamp))
}

func TestAuthFailure(t *testing.T) {
	p, fake, _ := newPipeline(t, false)

	_, err := p.Discover(context.Background(), true)
	require.ErrorIs(t, err, ErrAuthFailed)
	require.Equal(t, 1, fake.Closed())

	_, err = p.Acquire(context.Background(), &model.CourseTree{}, true, true)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestNewRejectsBadWeekPattern(t *testing.T) {
	cfg := testConfig()
	cfg.Acquire.WeekPattern = "(["
	_, err := New(cfg, nil, afero.NewMemMapFs(), nil)
	require.Error(t, err)
}
