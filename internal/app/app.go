package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/hitoshi/feedboost/internal/config"
	"github.com/hitoshi/feedboost/internal/database"
	"github.com/hitoshi/feedboost/internal/handler"
	"github.com/hitoshi/feedboost/internal/logger"
	"github.com/hitoshi/feedboost/internal/metrics"
	"github.com/hitoshi/feedboost/internal/worker/boost"
	"github.com/hitoshi/feedboost/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envファイルを読み込み、JSON構造化ログをセットアップしてから環境変数のConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer, accountsFile string, envFiles ...string) (*config.Config, error) {
	// 1. .envの読み込み（LOG_LEVELもここで補完される）
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefaultWithLevel(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 3. 環境変数から設定を読み込む
	cfg, err := config.LoadFrom(accountsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, rest := ParseCommand(args)

	switch cmd {
	case CommandHealthcheck:
		// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
		return runHealthcheck(getEnv("OPS_PORT", "9090"))
	case CommandMigrate:
		return runMigrate(w, rest)
	case CommandPrune:
		return runPrune(w, rest)
	case CommandRun, CommandWorker:
	default:
		return fmt.Errorf("unknown command: %q", args[0])
	}

	opts, err := parseRunFlags(string(cmd), rest)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := Init(w, opts.accountsFile, opts.envFiles...)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if opts.dryRunSet {
		cfg.DryRun = opts.dryRun
	}

	accounts, err := cfg.SelectAccounts(opts.only)
	if err != nil {
		return err
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.Int("accounts", len(accounts)),
		slog.String("ledger_backend", cfg.LedgerBackend),
		slog.Bool("dry_run", cfg.DryRun),
	)

	if cmd == CommandWorker {
		return runWorker(cfg, accounts)
	}
	return runOnce(cfg, accounts)
}

// runOnce は全アカウントを1回実行する。
// 個々のアカウントの失敗はログに記録し、プロセスの終了コードには反映しない。
func runOnce(cfg *config.Config, accounts []config.Account) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := wire(ctx, cfg, accounts, nil)
	if err != nil {
		return err
	}
	defer deps.Close()

	outcomes := boost.RunAll(ctx, deps.runner, deps.jobs, cfg.RunConcurrency)

	var amplified, endorsed, failed int
	for _, o := range outcomes {
		amplified += o.Summary.Amplified
		endorsed += o.Summary.Endorsed
		if o.Err != nil {
			failed++
		}
	}
	slog.Info("all accounts processed",
		slog.Int("accounts", len(outcomes)),
		slog.Int("failed", failed),
		slog.Int("amplified", amplified),
		slog.Int("endorsed", endorsed),
	)

	return nil
}

// runWorker はワーカーモードで起動する。
// RUN_INTERVAL間隔で全アカウントを実行し、運用HTTPサーバー（/health, /metrics, /status）を公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config, accounts []config.Account) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. 依存関係のワイヤリング
	deps, err := wire(ctx, cfg, accounts, collector)
	if err != nil {
		return err
	}
	defer deps.Close()

	scheduler := boost.NewScheduler(deps.runner, deps.jobs, slog.Default(), cfg.RunConcurrency)

	// 3. 運用HTTPサーバーの起動
	routerDeps := &handler.RouterDeps{
		Status:   scheduler,
		Gatherer: reg,
		Logger:   slog.Default(),
	}
	if deps.db != nil {
		routerDeps.HealthChecker = deps.db
	}

	server := &http.Server{
		Addr:         ":" + cfg.OpsPort,
		Handler:      handler.NewRouter(routerDeps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("ops server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("worker starting",
		slog.Duration("run_interval", cfg.RunInterval),
		slog.Int("max_concurrent", cfg.RunConcurrency),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.RunInterval)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(w io.Writer, args []string) error {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	envFiles := fs.StringSlice("env-file", nil, ".env files to load before reading the environment")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadEnvFiles(*envFiles...); err != nil {
		return err
	}
	logger.SetupDefaultWithLevel(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	databaseURL, err := config.LoadDatabaseURL()
	if err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(databaseURL)),
	)

	version, err := database.RunMigrations(databaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runPrune は指定期間より前に記録された台帳エントリを削除する。
// Postgresバックエンド専用。削除した項目は次回の実行で再び候補になりうる。
func runPrune(w io.Writer, args []string) error {
	fs := pflag.NewFlagSet("prune", pflag.ContinueOnError)
	olderThan := fs.Duration("older-than", 0, "delete ledger entries recorded before this duration ago (required)")
	only := fs.StringSlice("only", nil, "limit pruning to these account tags")
	envFiles := fs.StringSlice("env-file", nil, ".env files to load before reading the environment")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *olderThan <= 0 {
		return errors.New("--older-than is required and must be positive")
	}

	if err := config.LoadEnvFiles(*envFiles...); err != nil {
		return err
	}
	logger.SetupDefaultWithLevel(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	databaseURL, err := config.LoadDatabaseURL()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	job := cleanup.NewPruneJob(db, slog.Default(), *olderThan)
	for _, tag := range *only {
		if tag = strings.ToUpper(strings.TrimSpace(tag)); tag != "" {
			job.Accounts = append(job.Accounts, tag)
		}
	}

	if _, err := job.Run(ctx); err != nil {
		return err
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
