package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/accounts/internal/metrics"
)

// Runner はクリーンアップ1回分の実行を抽象化するインターフェース。
type Runner interface {
	Run(ctx context.Context) (int64, error)
}

// Scheduler はクリーンアップジョブを毎日00:00 UTCに実行する。
// 実行前にLockerを取得し、取得できない場合はその回をスキップする。
type Scheduler struct {
	job      Runner
	locker   Locker
	logger   *slog.Logger
	recorder RunRecorder
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time

	// RunOnStart がtrueの場合、起動直後に1回実行する。
	RunOnStart bool
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// lockerがnilの場合はLocalLockerを使用する。
func NewScheduler(job Runner, locker Locker, logger *slog.Logger, recorder RunRecorder) *Scheduler {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Scheduler{
		job:      job,
		locker:   locker,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
		after:    time.After,
	}
}

// Start はコンテキストがキャンセルされるまで日次実行を継続する。
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("クリーンアップスケジューラを開始しました",
		slog.Bool("run_on_start", s.RunOnStart),
	)

	if s.RunOnStart {
		s.RunOnce(ctx)
	}

	for {
		next := nextDailyRun(s.now())
		s.logger.Info("次回のクリーンアップ予定", slog.Time("next_run", next))

		select {
		case <-ctx.Done():
			s.logger.Info("クリーンアップスケジューラを停止しました")
			return
		case <-s.after(next.Sub(s.now())):
			s.RunOnce(ctx)
		}
	}
}

// RunOnce はロックを取得してジョブを1回実行する。
// 実行した場合はtrueを返す。失敗はログとメトリクスに記録済みのため返さない。
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	unlock, acquired, err := s.locker.TryLock(ctx)
	if err != nil {
		s.logger.Error("クリーンアップロックの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		s.record(metrics.CleanupResultFailure)
		return false
	}
	if !acquired {
		s.logger.Warn("前回のクリーンアップが実行中のためスキップしました")
		s.record(metrics.CleanupResultSkipped)
		return false
	}
	defer func() {
		// キャンセル済みでも解放できるよう新しいコンテキストを使う
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := unlock(releaseCtx); err != nil {
			s.logger.Error("クリーンアップロックの解放に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}()

	if _, err := s.job.Run(ctx); err != nil {
		s.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}
	return true
}

func (s *Scheduler) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordCleanupRun(result, 0)
	}
}

// nextDailyRun はnowより後の最初の00:00 UTCを返す。
// nowがちょうど00:00の場合は翌日を返す。
func nextDailyRun(now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, 1)
}
