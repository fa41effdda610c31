package acquirer

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
	"github.com/LouYuanbo1/coursecrawler/internal/domain/model"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/collector"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/persistence/folder"
)

type Session interface {
	Crawler() (chrome.ChromeCrawler, error)
}

// Acquirer 在活动页面上找到下载入口,触发浏览器下载并确认文件落盘
type Acquirer struct {
	cfg     *config.Config
	session Session
	store   *folder.Store
	layout  *folder.Layout
	fetcher collector.FileFetcher
	logger  *slog.Logger
}

// NewAcquirer fetcher 可以为 nil,此时页面本身是文件的情况只记为 skipped(auto)
func NewAcquirer(cfg *config.Config, session Session, store *folder.Store, layout *folder.Layout, fetcher collector.FileFetcher, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{
		cfg:     cfg,
		session: session,
		store:   store,
		layout:  layout,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Acquire 下载一个活动到 dir。单个资源的任何失败都体现在返回的结果中,
// error 只用于会话未就绪
func (a *Acquirer) Acquire(ctx context.Context, activity *model.Activity, dir string, skipExisting bool) (model.DownloadOutcome, error) {
	if !activity.Type.Downloadable() {
		return model.Ignored(), nil
	}
	cr, err := a.session.Crawler()
	if err != nil {
		return model.DownloadOutcome{}, err
	}
	logger := a.logger.With(slog.String("activity", activity.Name), slog.String("type", string(activity.Type)))

	if skipExisting {
		exists, err := a.store.HasPrefix(dir, a.layout.Sanitize(activity.Name))
		if err != nil {
			logger.Warn("检查已有文件失败", slog.Any("error", err))
		}
		if exists {
			logger.Debug("文件已存在, 跳过")
			return model.Skipped(model.ReasonExists), nil
		}
	}

	outcome := a.download(ctx, cr, activity, dir, logger)
	switch outcome.Status {
	case model.StatusDownloaded:
		logger.Info("下载完成", slog.String("path", outcome.Path))
	case model.StatusSkipped:
		logger.Info("跳过下载", slog.String("reason", outcome.Reason))
	default:
		logger.Warn("下载失败", slog.String("reason", outcome.Reason))
	}
	return outcome, nil
}

func (a *Acquirer) download(ctx context.Context, cr chrome.ChromeCrawler, activity *model.Activity, dir string, logger *slog.Logger) model.DownloadOutcome {
	timing := a.cfg.Timing

	if err := a.store.Ensure(dir); err != nil {
		return model.Failed(err.Error())
	}
	if err := cr.SetDownloadDir(ctx, dir); err != nil {
		return model.Failed("set download dir: " + err.Error())
	}
	if err := chrome.NavigateWithin(ctx, cr, activity.URL, timing.NavigateTimeout.Std()); err != nil {
		return model.Failed(err.Error())
	}
	if err := chrome.Settle(ctx, timing.ResourceSettle.Std()); err != nil {
		return model.Failed(err.Error())
	}

	affordance, found, err := a.findAffordance(ctx, cr)
	if err != nil {
		return model.Failed(err.Error())
	}
	if !found {
		return a.withoutAffordance(ctx, cr, dir, logger)
	}
	logger.Debug("找到下载入口", slog.String("selector", affordance.String()))

	before, err := a.store.Snapshot(dir)
	if err != nil {
		return model.Failed(err.Error())
	}
	if err := cr.Click(ctx, affordance); err != nil {
		return model.Failed(err.Error())
	}
	if err := chrome.Settle(ctx, timing.ClickSettle.Std()); err != nil {
		return model.Failed(err.Error())
	}

	newest, _, err := a.store.Diff(dir, before)
	if err != nil {
		return model.Failed(err.Error())
	}
	if newest != "" {
		return model.Downloaded(newest)
	}

	wait := timing.DownloadWait.Std()
	if wait <= 0 {
		wait = timing.DownloadTimeout.Std()
	}
	newest, result, err := waitForFile(ctx, a.store, dir, before, wait, timing.PollInterval.Std())
	if err != nil {
		return model.Failed(err.Error())
	}
	if result != pollFound {
		logger.Debug("等待下载超时", slog.String("result", result.String()))
		return model.Failed(model.ReasonTimeout)
	}
	return model.Downloaded(newest)
}

func (a *Acquirer) affordances() []chrome.Selector {
	sel := a.cfg.Selectors
	out := make([]chrome.Selector, 0, 2+len(sel.WorkaroundLinks))
	if sel.DownloadText != "" {
		out = append(out, chrome.PartialLinkText(sel.DownloadText))
	}
	if sel.ResourceLink != "" {
		out = append(out, chrome.CSS(sel.ResourceLink))
	}
	for _, w := range sel.WorkaroundLinks {
		out = append(out, chrome.CSS(w))
	}
	return out
}

func (a *Acquirer) findAffordance(ctx context.Context, cr chrome.ChromeCrawler) (chrome.Selector, bool, error) {
	for _, sel := range a.affordances() {
		ok, err := cr.HasElement(ctx, sel)
		if err != nil {
			return chrome.Selector{}, false, err
		}
		if ok {
			return sel, true, nil
		}
	}
	return chrome.Selector{}, false, nil
}

// withoutAffordance 页面本身已经是文件时浏览器会自动下载,无法确认文件名
func (a *Acquirer) withoutAffordance(ctx context.Context, cr chrome.ChromeCrawler, dir string, logger *slog.Logger) model.DownloadOutcome {
	location, err := cr.Location(ctx)
	if err != nil {
		return model.Failed(err.Error())
	}
	if !a.isFileURL(location) {
		return model.Failed(model.ReasonNoLink)
	}
	if a.fetcher == nil || !a.cfg.Colly.DirectFetch {
		return model.Skipped(model.ReasonAuto)
	}

	logger.Debug("页面本身是文件, 直接下载", slog.String("url", location))
	cookies, err := cr.Cookies(ctx)
	if err != nil {
		return model.Failed(err.Error())
	}
	saved, err := a.fetcher.Fetch(ctx, location, cookies, dir)
	if err != nil {
		return model.Failed(err.Error())
	}
	return model.Downloaded(saved)
}

func (a *Acquirer) isFileURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return false
	}
	for _, e := range a.cfg.Acquire.FileExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
