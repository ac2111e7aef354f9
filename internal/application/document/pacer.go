package document

import (
	"context"
	"time"
)

// Pacer 批量模式中阶段之间的固定等待
type Pacer interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SleepPacer 按时长等待，可被 ctx 取消
type SleepPacer struct{}

func (SleepPacer) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
