package boost

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/feedboost/internal/model"
)

// JobRunner は1つのJobを実行するインターフェース。
type JobRunner interface {
	Run(ctx context.Context, job Job) Outcome
}

// RunAll は全Jobを最大concurrency並列で実行し、Jobと同じ順序で結果を返す。
// あるJobの失敗は他のJobの実行を妨げない。
func RunAll(ctx context.Context, runner JobRunner, jobs []Job, concurrency int) []Outcome {
	if concurrency <= 0 {
		concurrency = 1
	}

	outcomes := make([]Outcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			outcomes[i] = runner.Run(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// Scheduler は一定間隔で全Jobを実行し、アカウントごとの直近の結果を保持する。
type Scheduler struct {
	runner      JobRunner
	jobs        []Job
	logger      *slog.Logger
	concurrency int

	mu   sync.RWMutex
	last map[string]Outcome
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// concurrencyが0以下の場合は1（逐次実行）を使用する。
func NewScheduler(runner JobRunner, jobs []Job, logger *slog.Logger, concurrency int) *Scheduler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{
		runner:      runner,
		jobs:        jobs,
		logger:      logger,
		concurrency: concurrency,
		last:        make(map[string]Outcome),
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("実行スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("accounts", len(s.jobs)),
		slog.Int("max_concurrency", s.concurrency),
	)

	// 起動直後に1回実行
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("実行スケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は全Jobを1回実行し、結果を保持する。
func (s *Scheduler) RunOnce(ctx context.Context) []Outcome {
	start := time.Now()

	outcomes := RunAll(ctx, s.runner, s.jobs, s.concurrency)

	failed := 0
	s.mu.Lock()
	for _, o := range outcomes {
		s.last[o.Job.Account] = o
		if o.Err != nil {
			failed++
		}
	}
	s.mu.Unlock()

	s.logger.Info("実行サイクルが完了しました",
		slog.Int("accounts", len(outcomes)),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return outcomes
}

// Statuses はアカウントごとの直近の実行結果をJobの順序で返す。
// まだ実行されていないアカウントは含まない。
func (s *Scheduler) Statuses() []model.RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunStatus, 0, len(s.last))
	for _, job := range s.jobs {
		if o, ok := s.last[job.Account]; ok {
			out = append(out, o.Status())
		}
	}
	return out
}
