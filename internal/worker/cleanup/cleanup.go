// Package cleanup は台帳エントリの手動削除（prune）ジョブを提供する。
// 削除した項目は次回の実行で再び候補になりうるため、自動実行はせず
// 運用者がpruneコマンドで明示的に実行する。
package cleanup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PruneJob は記録から一定期間を過ぎた台帳エントリを削除するジョブ。
type PruneJob struct {
	db     Executor
	logger *slog.Logger
	now    func() time.Time
	// OlderThan はこの期間より前に記録されたエントリを削除対象とする。
	OlderThan time.Duration
	// Accounts が空でない場合は指定アカウントのエントリのみ削除する。
	Accounts []string
}

// NewPruneJob は新しいPruneJobを生成する。
func NewPruneJob(db Executor, logger *slog.Logger, olderThan time.Duration) *PruneJob {
	return &PruneJob{
		db:        db,
		logger:    logger,
		now:       time.Now,
		OlderThan: olderThan,
	}
}

// Run は対象の台帳エントリを削除し、削除件数を返す。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *PruneJob) Run(ctx context.Context) (int64, error) {
	if j.OlderThan <= 0 {
		return 0, errors.New("older-than must be positive")
	}

	start := time.Now()
	cutoff := j.now().Add(-j.OlderThan)

	query := `DELETE FROM ledger_entries WHERE recorded_at < $1`
	args := []interface{}{cutoff}
	if len(j.Accounts) > 0 {
		query += ` AND account = ANY($2)`
		args = append(args, pq.Array(j.Accounts))
	}

	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		j.logger.Error("台帳の削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("older_than", j.OlderThan),
		)
		return 0, fmt.Errorf("台帳の削除に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.logger.Info("台帳の削除が完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Time("cutoff", cutoff),
		slog.Any("accounts", j.Accounts),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return deletedCount, nil
}
