package chrome

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/require"
)

func TestLinkSelectors(t *testing.T) {
	require.Equal(t, Selector{Query: `//a[normalize-space(.)='SSO 單一登入']`, XPath: true}, LinkText("SSO 單一登入"))
	require.Equal(t, `//a[contains(normalize-space(.), "it's")]`, PartialLinkText("it's").Query)
	require.Equal(t, `concat('a', "'", 'b"c')`, xpathLiteral(`a'b"c`))
	require.Equal(t, "css:.usermenu", CSS(".usermenu").String())
}

func TestSettle(t *testing.T) {
	require.NoError(t, Settle(context.Background(), 0))
	require.NoError(t, Settle(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Settle(ctx, time.Hour), context.Canceled)
}

func TestConnectOrKill(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	killed := 0
	// 没有浏览器在监听这个地址
	browser := rod.New().ControlURL("ws://127.0.0.1:1/devtools/browser/none").Context(ctx)
	require.Error(t, connectOrKill(browser, func() { killed++ }))
	require.Equal(t, 1, killed)
}
