package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/feedboost/internal/bsky"
	"github.com/hitoshi/feedboost/internal/config"
	"github.com/hitoshi/feedboost/internal/database"
	"github.com/hitoshi/feedboost/internal/ledger"
	"github.com/hitoshi/feedboost/internal/metrics"
	"github.com/hitoshi/feedboost/internal/model"
	"github.com/hitoshi/feedboost/internal/repository"
	"github.com/hitoshi/feedboost/internal/worker/boost"
)

// bskyAuthenticator は*bsky.Clientをboost.Authenticatorに適合させるアダプタ。
type bskyAuthenticator struct {
	client *bsky.Client
}

// Login はセッションを作成する。
func (a *bskyAuthenticator) Login(ctx context.Context, creds model.Credentials) (boost.Session, error) {
	s, err := a.client.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// dependencies はrun/workerで共有する組み立て済みの依存関係。
type dependencies struct {
	runner *boost.Runner
	jobs   []boost.Job
	db     *sql.DB
}

// Close はDB接続を閉じる。
func (d *dependencies) Close() {
	if d.db != nil {
		d.db.Close()
	}
}

// wire は設定から台帳ストア、XRPCクライアント、Runnerを組み立てる。
func wire(ctx context.Context, cfg *config.Config, accounts []config.Account, mc metrics.MetricsCollector) (*dependencies, error) {
	deps := &dependencies{}

	var store ledger.Store
	switch cfg.LedgerBackend {
	case config.LedgerBackendPostgres:
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("database connection established")
		deps.db = db
		store = repository.NewPostgresLedgerRepo(db)
	default:
		store = newFileStore(cfg, accounts)
	}

	client := bsky.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.BskyHost, slog.Default())

	deps.runner = boost.NewRunner(&bskyAuthenticator{client: client}, store, mc, slog.Default(), boost.RunnerConfig{
		FeedLimit:      cfg.FeedLimit,
		ActionInterval: cfg.ActionInterval,
		DryRun:         cfg.DryRun,
	})
	deps.jobs = buildJobs(cfg, accounts)

	if len(deps.jobs) == 0 {
		deps.Close()
		return nil, fmt.Errorf("no accounts selected")
	}
	return deps, nil
}

// newFileStore はLEDGER_DIR配下のファイル台帳を生成し、アカウントごとのファイル指定を反映する。
func newFileStore(cfg *config.Config, accounts []config.Account) *ledger.FileStore {
	fs := ledger.NewFileStore(cfg.LedgerDir)
	for _, a := range accounts {
		if a.LedgerFile != "" {
			fs.SetPath(ledger.Key{Account: a.Tag, Feed: a.FeedURI(cfg)}, a.LedgerFile)
		}
	}
	return fs
}

// buildJobs はアカウント設定から実行単位を組み立てる。
// 認証情報やフィードの不足はここでは検証せず、実行時に該当アカウントのみスキップする。
func buildJobs(cfg *config.Config, accounts []config.Account) []boost.Job {
	jobs := make([]boost.Job, 0, len(accounts))
	for _, a := range accounts {
		userEnv, passEnv := a.CredentialEnv()
		jobs = append(jobs, boost.Job{
			Account:       a.Tag,
			Feed:          a.FeedURI(cfg),
			Credentials:   a.Credentials(),
			CredentialEnv: []string{userEnv, passEnv},
			Window:        a.Window(cfg),
		})
	}
	return jobs
}
