// Package job 后台定时任务
package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// runTimeout 单次扫描的最长执行时间
const runTimeout = 2 * time.Minute

// EndedMeetingFinalizer 定稿已过结束时间的会议；由 AttendanceService 实现
type EndedMeetingFinalizer interface {
	FinalizeEnded(ctx context.Context) (int, error)
}

// MeetingSweeper 按 cron 表达式自动结束已过结束时间的会议
type MeetingSweeper struct {
	cron      *cron.Cron
	finalizer EndedMeetingFinalizer
	logger    *zap.Logger
}

// NewMeetingSweeper 注册定时任务；spec 为标准 5 段 cron 表达式
// 上一次扫描未结束时跳过本次触发
func NewMeetingSweeper(spec string, finalizer EndedMeetingFinalizer, logger *zap.Logger) (*MeetingSweeper, error) {
	cl := cronLogger{logger.Sugar()}
	s := &MeetingSweeper{
		cron:      cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		finalizer: finalizer,
		logger:    logger,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// Start 启动调度（非阻塞）
func (s *MeetingSweeper) Start() {
	s.logger.Info("会议自动结束任务已启动", zap.Int("entries", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的扫描完成，或 ctx 到期
func (s *MeetingSweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("等待会议自动结束任务退出超时")
	}
}

// RunOnce 执行一次扫描
func (s *MeetingSweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	n, err := s.finalizer.FinalizeEnded(ctx)
	if err != nil {
		s.logger.Error("自动结束会议失败", zap.Int("finalized", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("已自动结束会议", zap.Int("finalized", n))
	}
}

// cronLogger 将 cron 内部日志转接到 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
