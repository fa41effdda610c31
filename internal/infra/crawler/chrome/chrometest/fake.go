// Package chrometest 提供按脚本回放页面的内存 ChromeCrawler,供测试使用
package chrometest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/chrome"
)

// Page 是一个脚本化页面,Elements 记录每个选择器在导航后多久变为可见
type Page struct {
	HTML     string
	Elements map[string]time.Duration
	// OnClick 在对应选择器点击成功后执行
	OnClick map[string]func(c *Crawler)
	// LoadDelay 模拟页面迟迟不结束加载
	LoadDelay time.Duration
}

type Crawler struct {
	mu sync.Mutex

	Pages       map[string]*Page
	NavigateErr map[string]error
	HTMLErr     error
	CookieJar   []*http.Cookie

	current string
	visible map[string]time.Time
	clicks  []string
	filled  map[string]string
	visited []string
	dirs    []string
	closed  int
	onClick map[string]func(c *Crawler)
}

func New() *Crawler {
	return &Crawler{
		Pages:       make(map[string]*Page),
		NavigateErr: make(map[string]error),
		filled:      make(map[string]string),
		visible:     make(map[string]time.Time),
	}
}

var _ chrome.ChromeCrawler = (*Crawler)(nil)

func (c *Crawler) AddPage(url string, p *Page) *Crawler {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Pages[url] = p
	return c
}

// Show 让 query 在当前页面 d 之后可见
func (c *Crawler) Show(query string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible[query] = time.Now().Add(d)
}

func (c *Crawler) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.visited = append(c.visited, url)
	if err := c.NavigateErr[url]; err != nil {
		c.mu.Unlock()
		return err
	}
	p, ok := c.Pages[url]
	c.mu.Unlock()

	if ok && p.LoadDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.LoadDelay):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = url
	c.visible = make(map[string]time.Time)
	c.onClick = nil
	if ok {
		now := time.Now()
		for q, d := range p.Elements {
			c.visible[q] = now.Add(d)
		}
		c.onClick = p.OnClick
	}
	return nil
}

func (c *Crawler) visibleAt(query string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.visible[query]
	return at, ok
}

func (c *Crawler) WaitElement(ctx context.Context, sel chrome.Selector, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if at, ok := c.visibleAt(sel.Query); ok && !time.Now().Before(at) {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (c *Crawler) HasElement(ctx context.Context, sel chrome.Selector) (bool, error) {
	at, ok := c.visibleAt(sel.Query)
	return ok && !time.Now().Before(at), nil
}

func (c *Crawler) Click(ctx context.Context, sel chrome.Selector) error {
	if ok, _ := c.HasElement(ctx, sel); !ok {
		return fmt.Errorf("element not found: %s", sel)
	}
	c.mu.Lock()
	c.clicks = append(c.clicks, sel.Query)
	hook := c.onClick[sel.Query]
	c.mu.Unlock()
	if hook != nil {
		hook(c)
	}
	return nil
}

func (c *Crawler) Fill(ctx context.Context, sel chrome.Selector, value string) error {
	if ok, _ := c.HasElement(ctx, sel); !ok {
		return fmt.Errorf("element not found: %s", sel)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filled[sel.Query] = value
	return nil
}

func (c *Crawler) HTML(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.HTMLErr != nil {
		return "", c.HTMLErr
	}
	p, ok := c.Pages[c.current]
	if !ok {
		return "<html><body></body></html>", nil
	}
	return p.HTML, nil
}

func (c *Crawler) Location(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == "" {
		return "", errors.New("no page loaded")
	}
	return c.current, nil
}

func (c *Crawler) SetDownloadDir(ctx context.Context, dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirs = append(c.dirs, dir)
	return nil
}

func (c *Crawler) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CookieJar, nil
}

func (c *Crawler) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
}

func (c *Crawler) Clicks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.clicks...)
}

func (c *Crawler) Filled(query string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filled[query]
}

func (c *Crawler) Visited() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.visited...)
}

func (c *Crawler) DownloadDirs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.dirs...)
}

func (c *Crawler) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
