package extractor

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

type Session interface {
	Crawler() (chrome.ChromeCrawler, error)
}

type Extractor struct {
	cfg     *config.Config
	session Session
	rules   model.KindRules
	logger  *slog.Logger
}

func NewExtractor(cfg *config.Config, session Session, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		cfg:     cfg,
		session: session,
		rules:   Rules(cfg.Rules),
		logger:  logger,
	}
}

// Rules 把配置中的规则表转换为有序的类型推断规则
func Rules(rules []config.ActivityRule) model.KindRules {
	out := make(model.KindRules, 0, len(rules))
	for _, r := range rules {
		out = append(out, model.KindRule{Marker: r.Marker, Kind: model.ParseKind(r.Kind)})
	}
	return out
}

// Extract 重新构建课程的章节树。课程页读取失败时课程保持为空章节并记录日志
func (e *Extractor) Extract(ctx context.Context, course *model.Course) error {
	cr, err := e.session.Crawler()
	if err != nil {
		return err
	}
	course.Sections = []*model.Section{}
	logger := e.logger.With(slog.String("course", course.Name))

	html, location, err := e.load(ctx, cr, course.URL)
	if err != nil {
		logger.Error("读取课程页失败", slog.String("url", course.URL), slog.Any("error", err))
		return nil
	}
	sections, err := ParseCourseContent(html, location, e.cfg.Selectors, e.rules)
	if err != nil {
		logger.Error("解析课程页失败", slog.Any("error", err))
		return nil
	}
	course.Sections = sections

	activities := 0
	for _, s := range sections {
		activities += len(s.Activities)
	}
	logger.Info("课程内容解析完成", slog.Int("sections", len(sections)), slog.Int("activities", activities))
	return nil
}

func (e *Extractor) load(ctx context.Context, cr chrome.ChromeCrawler, pageURL string) (string, string, error) {
	if err := chrome.NavigateWithin(ctx, cr, pageURL, e.cfg.Timing.NavigateTimeout.Std()); err != nil {
		return "", "", err
	}
	if err := chrome.Settle(ctx, e.cfg.Timing.CourseSettle.Std()); err != nil {
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

// ParseCourseContent 按文档顺序枚举章节和活动。章节序号等于已收集的章节数,
// 因此始终连续;名称或地址为空的活动被跳过
func ParseCourseContent(html, pageURL string, sel config.SelectorConfig, rules model.KindRules) ([]*model.Section, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("页面地址无效: %w", err)
	}

	sections := make([]*model.Section, 0)
	doc.Find(sel.Section).Each(func(_ int, s *goquery.Selection) {
		section := &model.Section{
			Index:      len(sections),
			Title:      sectionTitle(s, sel),
			Activities: make([]*model.Activity, 0),
		}
		s.Find(sel.Activity).Each(func(_ int, a *goquery.Selection) {
			if act := parseActivity(a, base, sel, rules); act != nil {
				section.Activities = append(section.Activities, act)
			}
		})
		sections = append(sections, section)
	})
	return sections, nil
}

func sectionTitle(s *goquery.Selection, sel config.SelectorConfig) *string {
	title := visibleText(s.Find(sel.SectionName).First(), sel.HiddenText)
	if title == "" {
		return nil
	}
	return model.StringPtr(title)
}

// visibleText 去掉只给屏幕阅读器的文字(如 Moodle 在链接里附加的 " File")
func visibleText(s *goquery.Selection, hidden string) string {
	if hidden != "" {
		s = s.Clone()
		s.Find(hidden).Remove()
	}
	return strings.Join(strings.Fields(s.Text()), " ")
}

func parseActivity(a *goquery.Selection, base *url.URL, sel config.SelectorConfig, rules model.KindRules) *model.Activity {
	link := a.Find(sel.ActivityLink).First()
	if link.Length() == 0 {
		return nil
	}
	name := visibleText(link, sel.HiddenText)
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if name == "" || href == "" {
		return nil
	}
	ref, err := base.Parse(href)
	if err != nil {
		return nil
	}
	class, _ := a.Attr("class")
	return &model.Activity{
		Name: name,
		URL:  ref.String(),
		Type: rules.Infer(strings.Fields(class)),
	}
}
