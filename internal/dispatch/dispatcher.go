// Package dispatch はアクションプランを外部クライアントに対して実行する。
// 失敗は候補・アクションごとに結果値として記録し、実行全体を中断しない。
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/feedboost/internal/model"
)

// ActionPerformer はリモートアクションの実行インターフェース。
// テスト時にモックに差し替え可能。
type ActionPerformer interface {
	Perform(ctx context.Context, kind model.ActionKind, actor string, ref model.ContentRef) error
}

// Spender は処理済みIDの記録先（台帳）のインターフェース。
type Spender interface {
	Add(id string) bool
}

// Config はディスパッチャの設定パラメータ。
type Config struct {
	// Interval はプランのエントリ間の最低間隔（0の場合は間隔なし）。
	Interval time.Duration
}

// Report はディスパッチ結果の集計。
type Report struct {
	Amplified     int
	Endorsed      int
	AmplifyFailed int
	EndorseFailed int
	NotAttempted  int
	// Interrupted はコンテキストのキャンセルにより途中で停止したことを示す。
	Interrupted bool
}

// Dispatcher はプランの各エントリに対して拡散→支持の順にアクションを同期実行する。
// リトライは行わない。
type Dispatcher struct {
	performer ActionPerformer
	logger    *slog.Logger
	config    Config
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
func NewDispatcher(performer ActionPerformer, logger *slog.Logger, config Config) *Dispatcher {
	return &Dispatcher{
		performer: performer,
		logger:    logger,
		config:    config,
	}
}

// Dispatch はプランを先頭から順に実行し、各エントリの結果スロットを更新する。
//
// 拡散が成功した時点でIDを台帳に記録し、その後に支持を試みる。
// 支持の失敗は記録のみで、台帳の記録は取り消さない。
// 拡散が失敗した場合は支持を試みず、IDは台帳に記録しない（次回の実行で再び候補になる）。
func (d *Dispatcher) Dispatch(ctx context.Context, actor string, plan []model.PlanEntry, spent Spender) Report {
	var report Report

	var limiter *rate.Limiter
	if d.config.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(d.config.Interval), 1)
	}

	for i := range plan {
		entry := &plan[i]

		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			report.NotAttempted = len(plan) - i
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				report.Interrupted = true
				report.NotAttempted = len(plan) - i
				break
			}
		}

		d.dispatchEntry(ctx, actor, entry, spent, &report)
	}

	return report
}

func (d *Dispatcher) dispatchEntry(ctx context.Context, actor string, entry *model.PlanEntry, spent Spender, report *Report) {
	c := entry.Candidate

	entry.Amplify = d.perform(ctx, model.ActionAmplify, actor, c)
	if entry.Amplify.Status != model.ActionSucceeded {
		report.AmplifyFailed++
		d.logger.Warn("amplify failed",
			slog.String("item_id", c.ItemID),
			slog.String("author", c.AuthorID),
			slog.String("error", entry.Amplify.Err.Error()),
		)
		return
	}

	report.Amplified++
	if spent != nil {
		spent.Add(c.ItemID)
	}

	entry.Endorse = d.perform(ctx, model.ActionEndorse, actor, c)
	if entry.Endorse.Status != model.ActionSucceeded {
		report.EndorseFailed++
		d.logger.Warn("endorse failed",
			slog.String("item_id", c.ItemID),
			slog.String("author", c.AuthorID),
			slog.String("error", entry.Endorse.Err.Error()),
		)
		return
	}

	report.Endorsed++
	d.logger.Debug("item processed",
		slog.String("item_id", c.ItemID),
		slog.String("author", c.AuthorID),
	)
}

func (d *Dispatcher) perform(ctx context.Context, kind model.ActionKind, actor string, c model.Candidate) model.ActionResult {
	if err := d.performer.Perform(ctx, kind, actor, c.Ref); err != nil {
		return model.ActionResult{Status: model.ActionFailed, Err: err}
	}
	return model.ActionResult{Status: model.ActionSucceeded}
}
