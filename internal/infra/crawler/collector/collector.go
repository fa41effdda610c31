package collector

import (
	"context"
	"net/http"
)

// FileFetcher 不经过浏览器,直接用会话 cookie 下载一个文件到 folder
type FileFetcher interface {
	Fetch(ctx context.Context, rawURL string, cookies []*http.Cookie, folder string) (string, error)
}
