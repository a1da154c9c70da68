package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

type stubFinalizer struct {
	calls atomic.Int32
	n     int
	err   error
}

func (f *stubFinalizer) FinalizeEnded(_ context.Context) (int, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestNewMeetingSweeper_InvalidSpec(t *testing.T) {
	if _, err := NewMeetingSweeper("not a cron", &stubFinalizer{}, zap.NewNop()); err == nil {
		t.Fatal("非法 cron 表达式应返回错误")
	}
}

func TestMeetingSweeper_RunOnce(t *testing.T) {
	f := &stubFinalizer{n: 2}
	s, err := NewMeetingSweeper("*/5 * * * *", f, zap.NewNop())
	if err != nil {
		t.Fatalf("创建任务失败: %v", err)
	}

	s.RunOnce()
	if got := f.calls.Load(); got != 1 {
		t.Errorf("期望调用 1 次，实际 %d", got)
	}

	f.err = errors.New("db down")
	s.RunOnce()
	if got := f.calls.Load(); got != 2 {
		t.Errorf("出错后仍应完成调用，实际 %d", got)
	}
}

func TestMeetingSweeper_StartStop(t *testing.T) {
	s, err := NewMeetingSweeper("@every 1h", &stubFinalizer{}, zap.NewNop())
	if err != nil {
		t.Fatalf("创建任务失败: %v", err)
	}
	s.Start()
	s.Stop(context.Background())
}
