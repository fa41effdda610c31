package acquirer

import (
	"context"
	"time"

	"github.com/LouYuanbo1/coursecrawler/internal/infra/persistence/folder"
)

type pollResult int

const (
	pollFound pollResult = iota
	// pollPending 截止时仍只有未完成的临时文件
	pollPending
	pollTimedOut
)

func (r pollResult) String() string {
	switch r {
	case pollFound:
		return "found"
	case pollPending:
		return "pending"
	default:
		return "timed_out"
	}
}

// waitForFile 每隔 interval 比对一次目录,直到出现新的完整文件或超过 timeout
func waitForFile(ctx context.Context, store *folder.Store, dir string, before folder.Snapshot, timeout, interval time.Duration) (string, pollResult, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pending := false
	for {
		newest, partial, err := store.Diff(dir, before)
		if err != nil {
			return "", pollTimedOut, err
		}
		if newest != "" {
			return newest, pollFound, nil
		}
		pending = pending || partial
		if time.Until(deadline) <= 0 {
			if pending {
				return "", pollPending, nil
			}
			return "", pollTimedOut, nil
		}
		select {
		case <-ctx.Done():
			return "", pollTimedOut, ctx.Err()
		case <-ticker.C:
		}
	}
}
