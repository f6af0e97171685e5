// Package cleanup は論理削除済みユーザーの自動物理削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過したユーザーを日次バッチで削除する。
// access_tokensはCASCADE削除で自動的に処理される。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/accounts/internal/metrics"
)

// DefaultRetentionDays は論理削除から物理削除までのデフォルト日数。
const DefaultRetentionDays = 30

// Purger は論理削除済みユーザーの一括物理削除を抽象化するインターフェース。
// repository.UserRepositoryが満たす。
type Purger interface {
	PurgeSoftDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunRecorder はクリーンアップ結果のメトリクス記録を抽象化するインターフェース。
type RunRecorder interface {
	RecordCleanupRun(result string, purged int64)
}

// CleanupJob は保持期間を超過した論理削除済みユーザーの物理削除ジョブ。
// 冪等: 削除対象がない場合でもエラーにならない。
type CleanupJob struct {
	purger        Purger
	logger        *slog.Logger
	recorder      RunRecorder
	now           func() time.Time
	RetentionDays int // 論理削除後の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewCleanupJob(purger Purger, logger *slog.Logger, recorder RunRecorder) *CleanupJob {
	return &CleanupJob{
		purger:        purger,
		logger:        logger,
		recorder:      recorder,
		now:           time.Now,
		RetentionDays: DefaultRetentionDays,
	}
}

// Cutoff は基準時刻から保持日数を引いた削除境界を返す。
// deleted_atがこれより前のユーザーが削除対象になる。
func (j *CleanupJob) Cutoff(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -j.RetentionDays)
}

// Run は保持期間を超過した論理削除済みユーザーを1文で物理削除し、削除件数を返す。
func (j *CleanupJob) Run(ctx context.Context) (int64, error) {
	began := time.Now()
	cutoff := j.Cutoff(j.now())

	j.logger.Info("Start to delete users...",
		slog.Int("retention_days", j.RetentionDays),
		slog.Time("cutoff", cutoff),
	)

	deletedCount, err := j.purger.PurgeSoftDeletedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("ユーザークリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		j.record(metrics.CleanupResultFailure, 0)
		return 0, fmt.Errorf("ユーザークリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(began)
	if deletedCount == 0 {
		j.logger.Info("No users to delete.",
			slog.Int64("deleted_count", 0),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
	} else {
		j.logger.Info(fmt.Sprintf("Delete %d users.", deletedCount),
			slog.Int64("deleted_count", deletedCount),
			slog.Int("retention_days", j.RetentionDays),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
	}

	j.record(metrics.CleanupResultSuccess, deletedCount)
	return deletedCount, nil
}

func (j *CleanupJob) record(result string, purged int64) {
	if j.recorder != nil {
		j.recorder.RecordCleanupRun(result, purged)
	}
}
