// Package boost は（アカウント×フィード）単位の実行パイプラインを提供する。
// 台帳の読み込み、候補抽出、選択、アクション実行、台帳の保存を1回の実行として扱う。
package boost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/feedboost/internal/candidate"
	"github.com/hitoshi/feedboost/internal/dispatch"
	"github.com/hitoshi/feedboost/internal/ledger"
	"github.com/hitoshi/feedboost/internal/metrics"
	"github.com/hitoshi/feedboost/internal/model"
	"github.com/hitoshi/feedboost/internal/selection"
)

// Session はログイン済みアカウントで行うフィード取得とアクション実行のインターフェース。
type Session interface {
	dispatch.ActionPerformer
	Actor() model.Actor
	FetchFeed(ctx context.Context, feedURI string, limit int) ([]model.FeedEntry, error)
}

// Authenticator はアカウントのログインを行うインターフェース。
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (Session, error)
}

// Job は1回の実行対象（アカウント×フィード）と、その実行に必要な設定を表す。
type Job struct {
	Account     string
	Feed        string
	Credentials model.Credentials
	// CredentialEnv は認証情報の取得元となる環境変数名（エラーメッセージ用）。
	CredentialEnv []string
	Window        model.Window
}

// Key は台帳のキーを返す。
func (j Job) Key() ledger.Key {
	return ledger.Key{Account: j.Account, Feed: j.Feed}
}

// Validate は実行前に設定の有無と範囲を検証する。
func (j Job) Validate() error {
	if j.Credentials.Identifier == "" || j.Credentials.Password == "" {
		return model.NewMissingCredentialError(j.Account, j.CredentialEnv...)
	}
	if j.Feed == "" {
		return model.NewMissingFeedError(j.Account)
	}
	if j.Window.Lookback <= 0 {
		return model.NewInvalidWindowError(j.Account, "lookback must be positive")
	}
	if j.Window.MaxPerRun <= 0 || j.Window.MaxPerAuthor <= 0 {
		return model.NewInvalidWindowError(j.Account, "caps must be positive")
	}
	return nil
}

// RunnerConfig はRunnerの設定パラメータ。
type RunnerConfig struct {
	FeedLimit      int
	ActionInterval time.Duration
	DryRun         bool
}

// Runner は1つのJobに対してパイプラインを同期実行する。
// 複数のJobを並行して実行してもよいが、同じ台帳を共有するJobを同時に実行してはならない。
type Runner struct {
	auth    Authenticator
	store   ledger.Store
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	config  RunnerConfig
	now     func() time.Time
	newID   func() string
}

// NewRunner はRunnerの新しいインスタンスを生成する。
// metricsがnilの場合はメトリクスを記録しない。
func NewRunner(
	auth Authenticator,
	store ledger.Store,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
	config RunnerConfig,
) *Runner {
	if mc == nil {
		mc = nopMetrics{}
	}
	return &Runner{
		auth:    auth,
		store:   store,
		metrics: mc,
		logger:  logger,
		config:  config,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Outcome は1回の実行の結果。Errは設定・取得・保存のいずれかの失敗を表す。
type Outcome struct {
	Job     Job
	RunID   string
	Summary model.Summary
	Err     error
}

// Status はOutcomeを公開用の表現に変換する。
func (o Outcome) Status() model.RunStatus {
	s := model.RunStatus{
		Account:       o.Job.Account,
		Feed:          o.Job.Feed,
		RunID:         o.RunID,
		Status:        StatusLabel(o.Err),
		Candidates:    o.Summary.Candidates,
		Selected:      o.Summary.Selected,
		Amplified:     o.Summary.Amplified,
		Endorsed:      o.Summary.Endorsed,
		AmplifyFailed: o.Summary.AmplifyFailed,
		EndorseFailed: o.Summary.EndorseFailed,
		DryRun:        o.Summary.DryRun,
		StartedAt:     o.Summary.StartedAt,
		DurationMS:    o.Summary.Duration.Milliseconds(),
	}
	if o.Err != nil {
		s.Error = o.Err.Error()
	}
	return s
}

// StatusLabel はエラーの種別をメトリクス・ステータス用のラベルに変換する。
func StatusLabel(err error) string {
	var cfgErr *model.ConfigError
	var retErr *model.RetrievalError
	var stErr *model.StorageError
	switch {
	case err == nil:
		return metrics.RunStatusOK
	case errors.As(err, &cfgErr):
		return metrics.RunStatusConfigError
	case errors.As(err, &retErr):
		return metrics.RunStatusRetrieval
	case errors.As(err, &stErr):
		return metrics.RunStatusStorage
	default:
		return "error"
	}
}

// Run はJobを1回実行する。
//
// 認証・フィード取得に失敗した場合はアクションを行わず、台帳も保存しない。
// ディスパッチ開始後は途中でキャンセルされても、台帳を1回だけ保存する。
func (r *Runner) Run(ctx context.Context, job Job) Outcome {
	out := Outcome{Job: job, RunID: r.newID()}
	started := r.now()
	out.Summary = model.Summary{
		Account:   job.Account,
		Feed:      job.Feed,
		DryRun:    r.config.DryRun,
		StartedAt: started,
	}

	logger := r.logger.With(
		slog.String("run_id", out.RunID),
		slog.String("account", job.Account),
		slog.String("feed", job.Feed),
	)

	out.Err = r.run(ctx, job, logger, &out.Summary)
	out.Summary.Duration = r.now().Sub(started)

	r.metrics.RecordRun(job.Account, StatusLabel(out.Err))
	r.metrics.RecordRunDuration(job.Account, out.Summary.Duration)

	if out.Err != nil {
		var cfgErr *model.ConfigError
		if errors.As(out.Err, &cfgErr) {
			logger.Warn("アカウントの設定が不足しているため実行をスキップしました",
				slog.String("code", cfgErr.Code),
				slog.String("error", out.Err.Error()),
			)
		} else {
			logger.Error("実行に失敗しました",
				slog.String("error", out.Err.Error()),
			)
		}
		return out
	}

	s := out.Summary
	logger.Info("実行が完了しました",
		slog.Int("candidates", s.Candidates),
		slog.Int("selected", s.Selected),
		slog.Int("amplified", s.Amplified),
		slog.Int("endorsed", s.Endorsed),
		slog.Int("amplify_failed", s.AmplifyFailed),
		slog.Int("endorse_failed", s.EndorseFailed),
		slog.Bool("dry_run", s.DryRun),
		slog.Float64("duration_ms", float64(s.Duration.Milliseconds())),
	)
	return out
}

func (r *Runner) run(ctx context.Context, job Job, logger *slog.Logger, summary *model.Summary) error {
	if err := job.Validate(); err != nil {
		return err
	}

	key := job.Key()
	done, err := r.store.Load(ctx, key)
	if err != nil {
		return &model.StorageError{Code: model.ErrCodeLedgerLoad, Account: job.Account, Err: err}
	}
	if done == nil {
		done = ledger.New()
	}

	session, err := r.auth.Login(ctx, job.Credentials)
	if err != nil {
		return &model.RetrievalError{Code: model.ErrCodeAuthFailed, Account: job.Account, Err: err}
	}

	entries, err := session.FetchFeed(ctx, job.Feed, r.config.FeedLimit)
	if err != nil {
		return &model.RetrievalError{Code: model.ErrCodeFetchFailed, Account: job.Account, Err: err}
	}

	extracted := candidate.Extract(entries, job.Window.Cutoff(r.now()), done)
	summary.Candidates = len(extracted.Candidates)
	r.metrics.RecordCandidates(job.Account, summary.Candidates)

	logger.Debug("feed entries extracted",
		slog.Int("entries", len(entries)),
		slog.Int("candidates", summary.Candidates),
		slog.Any("excluded", extracted.Excluded),
	)

	plan := selection.Select(extracted.Candidates, job.Window)
	summary.Selected = len(plan)

	if r.config.DryRun {
		for _, e := range plan {
			logger.Info("dry-run: planned item",
				slog.String("item_id", e.Candidate.ItemID),
				slog.String("author", e.Candidate.AuthorID),
				slog.Time("created_at", e.Candidate.CreatedAt),
			)
		}
		return nil
	}

	actor := session.Actor()
	repo := actor.DID
	if repo == "" {
		repo = actor.Handle
	}

	d := dispatch.NewDispatcher(session, logger, dispatch.Config{Interval: r.config.ActionInterval})
	report := d.Dispatch(ctx, repo, plan, done)

	summary.Amplified = report.Amplified
	summary.Endorsed = report.Endorsed
	summary.AmplifyFailed = report.AmplifyFailed
	summary.EndorseFailed = report.EndorseFailed
	r.recordActions(job.Account, plan)

	if report.Interrupted {
		logger.Warn("ディスパッチが中断されました",
			slog.Int("not_attempted", report.NotAttempted),
		)
	}

	if !done.Dirty() {
		return nil
	}
	// 中断時も処理済みの分は保存する。
	if err := r.store.Save(context.WithoutCancel(ctx), key, done); err != nil {
		return &model.StorageError{
			Code:    model.ErrCodeLedgerSave,
			Account: job.Account,
			Err:     fmt.Errorf("failed to persist %d new ids: %w", len(done.Added()), err),
		}
	}
	r.metrics.RecordLedgerSize(job.Account, done.Len())

	return nil
}

func (r *Runner) recordActions(account string, plan []model.PlanEntry) {
	for _, e := range plan {
		if e.Amplify.Status != model.ActionNotAttempted {
			r.metrics.RecordAction(account, string(model.ActionAmplify), e.Amplify.Status == model.ActionSucceeded)
		}
		if e.Endorse.Status != model.ActionNotAttempted {
			r.metrics.RecordAction(account, string(model.ActionEndorse), e.Endorse.Status == model.ActionSucceeded)
		}
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordRun(string, string)                {}
func (nopMetrics) RecordCandidates(string, int)            {}
func (nopMetrics) RecordAction(string, string, bool)       {}
func (nopMetrics) RecordRunDuration(string, time.Duration) {}
func (nopMetrics) RecordLedgerSize(string, int)            {}
