package chrome_test

import (
	"context"
	"testing"
	"time"

	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/coursecrawler/internal/infra/crawler/chrome/chrometest"
	"github.com/stretchr/testify/require"
)

func TestNavigateWithin(t *testing.T) {
	fake := chrometest.New().
		AddPage("https://portal.test/fast", &chrometest.Page{HTML: "<p>ok</p>"}).
		AddPage("https://portal.test/stall", &chrometest.Page{HTML: "<p>slow</p>", LoadDelay: time.Hour})

	require.NoError(t, chrome.NavigateWithin(context.Background(), fake, "https://portal.test/fast", 50*time.Millisecond))

	start := time.Now()
	err := chrome.NavigateWithin(context.Background(), fake, "https://portal.test/stall", 50*time.Millisecond)
	require.ErrorIs(t, err, chrome.ErrNavigateTimeout)
	require.Less(t, time.Since(start), 5*time.Second)

	// 页面没加载完,当前地址仍停在上一页
	loc, err := fake.Location(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://portal.test/fast", loc)
}

func TestNavigateWithinCallerCancel(t *testing.T) {
	fake := chrometest.New().
		AddPage("https://portal.test/stall", &chrometest.Page{LoadDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	// 调用方取消不算导航超时
	err := chrome.NavigateWithin(ctx, fake, "https://portal.test/stall", time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, chrome.ErrNavigateTimeout)
}
