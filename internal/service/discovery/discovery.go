package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
	"github.com/LouYuanbo1/coursecrawler/internal/domain/model"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/chrome"
	"github.com/PuerkitoBio/goquery"
)

// Session 已认证的浏览器会话
type Session interface {
	Crawler() (chrome.ChromeCrawler, error)
}

type Discoverer struct {
	cfg     *config.Config
	session Session
	logger  *slog.Logger
}

func NewDiscoverer(cfg *config.Config, session Session, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{cfg: cfg, session: session, logger: logger}
}

// Courses 从个人主页收集课程链接。页面读取失败时返回空列表并记录日志,
// error 只用于会话未就绪
func (d *Discoverer) Courses(ctx context.Context) ([]*model.Course, error) {
	cr, err := d.session.Crawler()
	if err != nil {
		return nil, err
	}

	dashboard, err := resolve(d.cfg.Portal.BaseURL, d.cfg.Portal.DashboardPath)
	if err != nil {
		d.logger.Error("个人主页地址无效", slog.Any("error", err))
		return []*model.Course{}, nil
	}
	d.logger.Info("读取课程列表", slog.String("url", dashboard))

	html, location, err := d.load(ctx, cr, dashboard)
	if err != nil {
		d.logger.Error("读取个人主页失败", slog.Any("error", err))
		return []*model.Course{}, nil
	}
	courses, err := ParseCourses(html, location, d.cfg.Selectors)
	if err != nil {
		d.logger.Error("解析课程列表失败", slog.Any("error", err))
		return []*model.Course{}, nil
	}
	d.logger.Info("课程发现完成", slog.Int("courses", len(courses)))
	return courses, nil
}

func (d *Discoverer) load(ctx context.Context, cr chrome.ChromeCrawler, pageURL string) (string, string, error) {
	if err := chrome.NavigateWithin(ctx, cr, pageURL, d.cfg.Timing.NavigateTimeout.Std()); err != nil {
		return "", "", err
	}
	if err := chrome.Settle(ctx, d.cfg.Timing.DashboardSettle.Std()); err != nil {
		return "", "", err
	}
	html, err := cr.HTML(ctx)
	if err != nil {
		return "", "", err
	}
	location, err := cr.Location(ctx)
	if err != nil || location == "" {
		location = pageURL
	}
	return html, location, nil
}

// ParseCourses 解析个人主页中的课程链接,链接按页面 URL 解析为绝对地址,
// 名称或地址为空的链接被丢弃,重复地址只保留第一次出现
func ParseCourses(html, pageURL string, sel config.SelectorConfig) ([]*model.Course, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("页面地址无效: %w", err)
	}

	courses := make([]*model.Course, 0)
	seen := make(map[string]struct{})
	doc.Find(sel.CourseLink).Each(func(_ int, s *goquery.Selection) {
		name := visibleText(s, sel.HiddenText)
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if name == "" || href == "" {
			return
		}
		ref, err := base.Parse(href)
		if err != nil {
			return
		}
		link := ref.String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		courses = append(courses, &model.Course{
			ID:       CourseID(ref),
			Name:     name,
			URL:      link,
			Sections: []*model.Section{},
		})
	})
	return courses, nil
}

// visibleText 链接文字,去掉屏幕阅读器专用的隐藏文字
func visibleText(s *goquery.Selection, hidden string) string {
	if hidden != "" {
		s = s.Clone()
		s.Find(hidden).Remove()
	}
	return strings.Join(strings.Fields(s.Text()), " ")
}

// CourseID 取链接中的 id 参数,不存在时为 nil
func CourseID(u *url.URL) *string {
	id := strings.TrimSpace(u.Query().Get("id"))
	if id == "" {
		return nil
	}
	return model.StringPtr(id)
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := b.Parse(ref)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}
