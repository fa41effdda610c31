package session

import (
	"context"
	"log/slog"

	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/chrome"
)

// Authenticate 走 SSO 登录流程,只有看到登录后标记才返回 true。
// 超时或找不到元素都视为登录失败,error 只用于会话未启动
func (c *Controller) Authenticate(ctx context.Context, creds Credentials) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateStarted, StateAuthenticated, StateAuthFailed:
	default:
		return false, ErrSessionNotStarted
	}

	ok := c.login(ctx, c.crawler, creds)
	if ok {
		c.state = StateAuthenticated
	} else {
		c.state = StateAuthFailed
	}
	return ok, nil
}

func (c *Controller) login(ctx context.Context, cr chrome.ChromeCrawler, creds Credentials) bool {
	sel := c.cfg.Selectors
	timing := c.cfg.Timing
	logger := c.logger.With(slog.String("username", creds.Username))

	logger.Info("开始登录", slog.String("url", c.cfg.Portal.BaseURL))
	if err := chrome.NavigateWithin(ctx, cr, c.cfg.Portal.BaseURL, timing.NavigateTimeout.Std()); err != nil {
		logger.Error("打开门户首页失败", slog.Any("error", err))
		return false
	}

	// 首页可能直接就是登录表单,SSO 入口只是可选的
	sso := chrome.LinkText(sel.SSOLinkText)
	found, err := cr.WaitElement(ctx, sso, timing.SSOProbe.Std())
	if err != nil {
		logger.Error("查找 SSO 入口失败", slog.Any("error", err))
		return false
	}
	if found {
		if err := cr.Click(ctx, sso); err != nil {
			logger.Error("点击 SSO 入口失败", slog.Any("error", err))
			return false
		}
		if err := chrome.Settle(ctx, timing.SSOSettle.Std()); err != nil {
			return false
		}
	} else {
		logger.Debug("未找到 SSO 入口, 直接查找登录表单")
	}

	username := chrome.CSS(sel.UsernameInput)
	found, err = cr.WaitElement(ctx, username, timing.LoginFormWait.Std())
	if err != nil || !found {
		logger.Error("登录表单未出现", slog.Any("error", err))
		return false
	}
	if err := cr.Fill(ctx, username, creds.Username); err != nil {
		logger.Error("填写用户名失败", slog.Any("error", err))
		return false
	}
	if err := cr.Fill(ctx, chrome.CSS(sel.PasswordInput), creds.Password); err != nil {
		logger.Error("填写密码失败", slog.Any("error", err))
		return false
	}
	if err := cr.Click(ctx, chrome.CSS(sel.SubmitButton)); err != nil {
		logger.Error("提交登录表单失败", slog.Any("error", err))
		return false
	}
	if err := chrome.Settle(ctx, timing.LoginSettle.Std()); err != nil {
		return false
	}

	found, err = cr.WaitElement(ctx, chrome.CSS(sel.LoggedInMarker), timing.LoginMarkerWait.Std())
	if err != nil || !found {
		logger.Error("登录失败, 未检测到用户菜单", slog.Any("error", err))
		return false
	}
	logger.Info("登录成功")
	return true
}
