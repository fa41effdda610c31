package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/persistence/folder"
	"github.com/gocolly/colly/v2"
	"github.com/spf13/afero"
)

var ErrUnexpectedPage = errors.New("portal returned a web page instead of a file")

type collyFetcher struct {
	colly         *colly.Collector
	fs            afero.Fs
	maxNameLength int
}

func InitCollyFetcher(cfg *config.Config, fs afero.Fs) FileFetcher {
	opts := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		// 课件可能很大,不限制响应体
		colly.MaxBodySize(0),
	}
	userAgent := cfg.Colly.UserAgent
	if userAgent == "" {
		userAgent = cfg.Browser.UserAgent
	}
	if userAgent != "" {
		opts = append(opts, colly.UserAgent(userAgent))
	}
	c := colly.NewCollector(opts...)
	if timeout := cfg.Colly.Timeout.Std(); timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	slog.Debug("InitCollyFetcher", slog.String("user_agent", userAgent), slog.Duration("timeout", cfg.Colly.Timeout.Std()))
	return &collyFetcher{
		colly:         c,
		fs:            fs,
		maxNameLength: cfg.Acquire.MaxNameLength,
	}
}

func (cf *collyFetcher) Fetch(ctx context.Context, rawURL string, cookies []*http.Cookie, dir string) (string, error) {
	// 每次下载使用独立的回调,底层 http 客户端共享
	c := cf.colly.Clone()
	c.Context = ctx
	if len(cookies) > 0 {
		if err := c.SetCookies(rawURL, cookies); err != nil {
			return "", fmt.Errorf("设置 cookie 失败: %w", err)
		}
	}

	var (
		saved    string
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/html" {
			fetchErr = ErrUnexpectedPage
			return
		}
		name := folder.Sanitize(fileName(r), cf.maxNameLength)
		target := filepath.Join(dir, name)
		if err := cf.fs.MkdirAll(dir, 0o755); err != nil {
			fetchErr = fmt.Errorf("创建目录失败: %w", err)
			return
		}
		if err := afero.WriteFile(cf.fs, target, r.Body, 0o644); err != nil {
			fetchErr = fmt.Errorf("写入文件失败: %w", err)
			return
		}
		saved = target
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("请求失败, status: %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(rawURL); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("访问URL失败: %w", err)
	}
	c.Wait()
	if fetchErr != nil {
		return "", fetchErr
	}
	if saved == "" {
		return "", errors.New("no response received")
	}
	return saved, nil
}

// fileName 优先使用 Content-Disposition,否则取最终 URL 的最后一段
func fileName(r *colly.Response) string {
	if cd := r.Headers.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	base := path.Base(r.Request.URL.Path)
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	if base == "" || base == "/" || base == "." {
		return "download"
	}
	return strings.TrimSpace(base)
}
