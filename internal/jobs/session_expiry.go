// Package jobs 进程内的定时任务。
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"classpad/pkg/metrics"
)

// SessionExpirer 关闭已过 end_time 的签到场次
type SessionExpirer interface {
	ExpireSessions(ctx context.Context, now time.Time) (int64, error)
}

// SessionExpirySweeper 周期性关闭过期签到场次
// 扫码查询本身已按 end_time 过滤，这里只负责把 is_active 落库，保证列表与导出一致
type SessionExpirySweeper struct {
	expirer  SessionExpirer
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSessionExpirySweeper 创建定时任务；interval <= 0 时使用 1 分钟
func NewSessionExpirySweeper(expirer SessionExpirer, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) *SessionExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionExpirySweeper{
		expirer:  expirer,
		interval: interval,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start 启动后台协程，重复调用无效
func (s *SessionExpirySweeper) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()

	s.logger.Info("签到过期清理任务已启动", zap.Duration("interval", s.interval))
}

// Stop 停止并等待当前一轮结束
func (s *SessionExpirySweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
}

// Sweep 执行一轮清理，返回关闭的场次数
func (s *SessionExpirySweeper) Sweep(ctx context.Context) int64 {
	n, err := s.expirer.ExpireSessions(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("关闭过期签到场次失败", zap.Error(err))
		}
		return 0
	}
	if n > 0 {
		s.metrics.SessionsExpired.Add(float64(n))
		s.logger.Info("已关闭过期签到场次", zap.Int64("count", n))
	}
	return n
}
