package chrome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

type chromedpCrawler struct {
	allocCtx        context.Context
	allocCtxFuc     context.CancelFunc
	pageCtx         context.Context
	pageCtxFuc      context.CancelFunc
	timeoutCtxFuc   context.CancelFunc
	elementTimeout  time.Duration
	navigateTimeout time.Duration
	closeOnce       sync.Once
}

func InitChromedpCrawler(ctx context.Context, cfg *config.Config, headless bool) (ChromeCrawler, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-dev-shm-usage", cfg.Browser.DisableDevShmUsage),
		chromedp.Flag("no-sandbox", cfg.Browser.NoSandbox),
		// 关闭安全浏览的下载拦截页
		chromedp.Flag("safebrowsing-disable-download-protection", true),
		chromedp.Flag("disable-features", "DownloadBubble,DownloadBubbleV2,SafeBrowsingEnhancedProtection"),
		chromedp.WindowSize(cfg.Browser.WindowWidth, cfg.Browser.WindowHeight),
	)
	if cfg.Browser.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.Browser.UserDataDir))
	}
	if cfg.Browser.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Browser.UserAgent))
	}
	if cfg.Browser.Bin != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Browser.Bin))
	}

	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, time.Duration(cfg.Browser.LifeTime)*time.Second)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, opts...)
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)

	cc := &chromedpCrawler{
		allocCtx:        allocCtx,
		allocCtxFuc:     cancelAlloc,
		pageCtx:         pageCtx,
		pageCtxFuc:      cancelPage,
		timeoutCtxFuc:   cancelTimeout,
		elementTimeout:  cfg.Timing.ElementTimeout.Std(),
		navigateTimeout: cfg.Timing.NavigateTimeout.Std(),
	}

	// 第一次 Run 才会真正启动浏览器,失败即无法获得会话
	if err := cc.SetDownloadDir(ctx, cfg.Portal.DownloadDir); err != nil {
		cc.Close()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	slog.Info("chromedp 浏览器已启动", slog.Bool("headless", headless))
	return cc, nil
}

func (cc *chromedpCrawler) Close() {
	cc.closeOnce.Do(func() {
		cc.pageCtxFuc()
		cc.allocCtxFuc()
		cc.timeoutCtxFuc()
	})
}

// run 在页面上下文中执行动作,调用方 ctx 取消时同步中断
func (cc *chromedpCrawler) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(cc.pageCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(cc.pageCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func by(sel Selector) chromedp.QueryOption {
	if sel.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (cc *chromedpCrawler) Navigate(ctx context.Context, url string) error {
	err := cc.run(ctx, cc.navigateTimeout, chromedp.Navigate(url))
	// 导航目标直接触发下载时 Chrome 会中止导航
	if err != nil && strings.Contains(err.Error(), "net::ERR_ABORTED") {
		return nil
	}
	if err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	return nil
}

func (cc *chromedpCrawler) WaitElement(ctx context.Context, sel Selector, timeout time.Duration) (bool, error) {
	err := cc.run(ctx, timeout, chromedp.WaitReady(sel.Query, by(sel)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return false, nil
	}
	return false, fmt.Errorf("等待元素失败 %s: %w", sel, err)
}

func (cc *chromedpCrawler) HasElement(ctx context.Context, sel Selector) (bool, error) {
	var nodes []*cdp.Node
	err := cc.run(ctx, cc.elementTimeout, chromedp.Nodes(sel.Query, &nodes, by(sel), chromedp.AtLeast(0)))
	if err != nil {
		return false, fmt.Errorf("查找元素失败 %s: %w", sel, err)
	}
	return len(nodes) > 0, nil
}

func (cc *chromedpCrawler) Click(ctx context.Context, sel Selector) error {
	if err := cc.run(ctx, cc.elementTimeout, chromedp.Click(sel.Query, by(sel))); err != nil {
		return fmt.Errorf("点击失败 %s: %w", sel, err)
	}
	return nil
}

func (cc *chromedpCrawler) Fill(ctx context.Context, sel Selector, value string) error {
	err := cc.run(ctx, cc.elementTimeout,
		chromedp.Clear(sel.Query, by(sel)),
		chromedp.SendKeys(sel.Query, value, by(sel)),
	)
	if err != nil {
		return fmt.Errorf("输入失败 %s: %w", sel, err)
	}
	return nil
}

func (cc *chromedpCrawler) HTML(ctx context.Context) (string, error) {
	var res string
	err := cc.run(ctx, cc.elementTimeout,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &res, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("读取页面失败: %w", err)
	}
	return res, nil
}

func (cc *chromedpCrawler) Location(ctx context.Context) (string, error) {
	var loc string
	if err := cc.run(ctx, cc.elementTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("读取当前 URL 失败: %w", err)
	}
	return loc, nil
}

func (cc *chromedpCrawler) SetDownloadDir(ctx context.Context, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return cc.run(ctx, 0,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(absDir).
			WithEventsEnabled(true),
	)
}

func (cc *chromedpCrawler) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	var cookies []*network.Cookie
	err := cc.run(ctx, cc.elementTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
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
