package chrome

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
)

// Selector 页面元素定位,XPath 为 false 时按 CSS 选择器处理
type Selector struct {
	Query string
	XPath bool
}

func CSS(query string) Selector {
	return Selector{Query: query}
}

func XPath(query string) Selector {
	return Selector{Query: query, XPath: true}
}

// LinkText 完全匹配链接文字
func LinkText(text string) Selector {
	return XPath(fmt.Sprintf(`//a[normalize-space(.)=%s]`, xpathLiteral(text)))
}

// PartialLinkText 链接文字包含 text 即匹配
func PartialLinkText(text string) Selector {
	return XPath(fmt.Sprintf(`//a[contains(normalize-space(.), %s)]`, xpathLiteral(text)))
}

func (s Selector) String() string {
	if s.XPath {
		return "xpath:" + s.Query
	}
	return "css:" + s.Query
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// ChromeCrawler 单个浏览器会话,同一时间只有一个页面在导航
type ChromeCrawler interface {
	Navigate(ctx context.Context, url string) error
	// WaitElement 在 timeout 内等待元素出现,超时返回 false 而不是错误
	WaitElement(ctx context.Context, sel Selector, timeout time.Duration) (bool, error)
	HasElement(ctx context.Context, sel Selector) (bool, error)
	Click(ctx context.Context, sel Selector) error
	Fill(ctx context.Context, sel Selector, value string) error
	HTML(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	SetDownloadDir(ctx context.Context, dir string) error
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	Close()
}

// Launch 按配置选择浏览器驱动并启动,下载目录在启动时预先绑定
func Launch(ctx context.Context, cfg *config.Config, headless bool) (ChromeCrawler, error) {
	switch cfg.Browser.Driver {
	case config.DriverRod:
		return InitRodCrawler(ctx, cfg, headless)
	case config.DriverChromedp, "":
		return InitChromedpCrawler(ctx, cfg, headless)
	default:
		return nil, fmt.Errorf("未知的浏览器驱动: %s", cfg.Browser.Driver)
	}
}

var ErrNavigateTimeout = errors.New("navigation timed out")

// NavigateWithin 导航最多等待 timeout,页面加载一直不结束时返回 ErrNavigateTimeout
func NavigateWithin(ctx context.Context, cr ChromeCrawler, url string, timeout time.Duration) error {
	if timeout <= 0 {
		return cr.Navigate(ctx, url)
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := cr.Navigate(navCtx, url)
	if err != nil && ctx.Err() == nil && errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("导航超时 %s: %w", url, ErrNavigateTimeout)
	}
	return err
}

// Settle 导航后的固定等待,可被 ctx 打断
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
