package chrome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

type rodCrawler struct {
	browser         *rod.Browser
	page            *rod.Page
	elementTimeout  time.Duration
	navigateTimeout time.Duration
	closeOnce       sync.Once
}

func InitRodCrawler(ctx context.Context, cfg *config.Config, headless bool) (ChromeCrawler, error) {
	l := launcher.New().
		Headless(headless).
		NoSandbox(cfg.Browser.NoSandbox).
		Leakless(cfg.Browser.Leakless).
		Set("window-size", strconv.Itoa(cfg.Browser.WindowWidth)+","+strconv.Itoa(cfg.Browser.WindowHeight)).
		Set("safebrowsing-disable-download-protection")
	if cfg.Browser.DisableDevShmUsage {
		l = l.Set("disable-dev-shm-usage")
	}
	if cfg.Browser.UserDataDir != "" {
		l = l.UserDataDir(cfg.Browser.UserDataDir)
	}
	if cfg.Browser.Bin != "" {
		l = l.Bin(cfg.Browser.Bin)
	}

	l = l.Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := connectOrKill(browser, l.Kill); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	rc := &rodCrawler{
		browser:         browser,
		elementTimeout:  cfg.Timing.ElementTimeout.Std(),
		navigateTimeout: cfg.Timing.NavigateTimeout.Std(),
	}

	rc.page, err = stealth.Page(browser)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	err = rc.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.Browser.WindowWidth,
		Height:            cfg.Browser.WindowHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("设置视口失败: %w", err)
	}
	if cfg.Browser.UserAgent != "" {
		if err := rc.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.Browser.UserAgent}); err != nil {
			rc.Close()
			return nil, fmt.Errorf("设置 UserAgent 失败: %w", err)
		}
	}
	if err := rc.SetDownloadDir(ctx, cfg.Portal.DownloadDir); err != nil {
		rc.Close()
		return nil, fmt.Errorf("设置下载目录失败: %w", err)
	}

	slog.Info("rod 浏览器已启动", slog.Bool("headless", headless), slog.String("control_url", controlURL))
	return rc, nil
}

func (rc *rodCrawler) Close() {
	rc.closeOnce.Do(func() {
		if err := rc.browser.Close(); err != nil {
			slog.Warn("关闭浏览器失败", slog.Any("error", err))
		}
	})
}

// connectOrKill 浏览器进程已经启动,连接失败时要结束它
func connectOrKill(browser *rod.Browser, kill func()) error {
	if err := browser.Connect(); err != nil {
		kill()
		return err
	}
	return nil
}

func (rc *rodCrawler) Navigate(ctx context.Context, url string) error {
	page := rc.page.Context(ctx)
	if rc.navigateTimeout > 0 {
		page = page.Timeout(rc.navigateTimeout)
	}
	if err := page.Navigate(url); err != nil {
		if strings.Contains(err.Error(), "net::ERR_ABORTED") {
			return nil
		}
		return fmt.Errorf("导航失败: %w", err)
	}
	// 页面一直加载不完也继续,后面还有固定的等待
	_ = rc.page.Context(ctx).Timeout(rc.elementTimeout).WaitLoad()
	return nil
}

func (rc *rodCrawler) element(ctx context.Context, sel Selector, timeout time.Duration) (*rod.Element, error) {
	page := rc.page.Context(ctx).Timeout(timeout)
	if sel.XPath {
		return page.ElementX(sel.Query)
	}
	return page.Element(sel.Query)
}

func (rc *rodCrawler) WaitElement(ctx context.Context, sel Selector, timeout time.Duration) (bool, error) {
	_, err := rc.element(ctx, sel, timeout)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return false, nil
	}
	return false, fmt.Errorf("等待元素失败 %s: %w", sel, err)
}

func (rc *rodCrawler) HasElement(ctx context.Context, sel Selector) (bool, error) {
	page := rc.page.Context(ctx)
	var (
		has bool
		err error
	)
	if sel.XPath {
		has, _, err = page.HasX(sel.Query)
	} else {
		has, _, err = page.Has(sel.Query)
	}
	if err != nil {
		return false, fmt.Errorf("查找元素失败 %s: %w", sel, err)
	}
	return has, nil
}

func (rc *rodCrawler) Click(ctx context.Context, sel Selector) error {
	el, err := rc.element(ctx, sel, rc.elementTimeout)
	if err != nil {
		return fmt.Errorf("查找元素失败 %s: %w", sel, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("点击失败 %s: %w", sel, err)
	}
	return nil
}

func (rc *rodCrawler) Fill(ctx context.Context, sel Selector, value string) error {
	el, err := rc.element(ctx, sel, rc.elementTimeout)
	if err != nil {
		return fmt.Errorf("查找元素失败 %s: %w", sel, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("清空输入框失败 %s: %w", sel, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("输入失败 %s: %w", sel, err)
	}
	return nil
}

func (rc *rodCrawler) HTML(ctx context.Context) (string, error) {
	html, err := rc.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("读取页面失败: %w", err)
	}
	return html, nil
}

func (rc *rodCrawler) Location(ctx context.Context) (string, error) {
	info, err := rc.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("读取当前 URL 失败: %w", err)
	}
	return info.URL, nil
}

func (rc *rodCrawler) SetDownloadDir(ctx context.Context, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  absDir,
		EventsEnabled: true,
	}.Call(rc.browser.Context(ctx))
}

func (rc *rodCrawler) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	cookies, err := rc.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("读取 cookie 失败: %w", err)
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out, nil
}
