package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/chrome"
)

var ErrSessionNotStarted = errors.New("session controller not started")

type State int

const (
	StateStopped State = iota
	StateStarted
	StateAuthenticated
	StateAuthFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarted:
		return "started"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthFailed:
		return "auth_failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Credentials struct {
	Username string
	Password string
}

// Launcher 启动浏览器,默认为 chrome.Launch
type Launcher func(ctx context.Context, cfg *config.Config, headless bool) (chrome.ChromeCrawler, error)

// Controller 持有唯一的浏览器会话,之后的各阶段都通过它拿到浏览器
type Controller struct {
	cfg    *config.Config
	launch Launcher
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	crawler chrome.ChromeCrawler
}

func NewController(cfg *config.Config, launch Launcher, logger *slog.Logger) *Controller {
	if launch == nil {
		launch = chrome.Launch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:    cfg,
		launch: launch,
		logger: logger,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start 启动浏览器,失败即整个流程无法继续
func (c *Controller) Start(ctx context.Context, headless bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateStopped {
		return fmt.Errorf("session already %s", c.state)
	}
	crawler, err := c.launch(ctx, c.cfg, headless)
	if err != nil {
		return fmt.Errorf("启动浏览器会话失败: %w", err)
	}
	c.crawler = crawler
	c.state = StateStarted
	c.logger.Info("浏览器会话已启动", slog.Bool("headless", headless), slog.String("driver", c.cfg.Browser.Driver))
	return nil
}

// Crawler 只有认证成功后才交出浏览器
func (c *Controller) Crawler() (chrome.ChromeCrawler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAuthenticated {
		return nil, ErrSessionNotStarted
	}
	return c.crawler, nil
}

// Close 可重复调用,未启动时也是安全的
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.crawler != nil {
		c.crawler.Close()
		c.crawler = nil
		c.logger.Info("浏览器会话已关闭")
	}
	c.state = StateClosed
}

// Run 启动会话并执行 fn,任何返回路径上都会关闭浏览器
func (c *Controller) Run(ctx context.Context, headless bool, fn func(ctx context.Context, c *Controller) error) error {
	if err := c.Start(ctx, headless); err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}
