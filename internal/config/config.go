package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 台帳のバックエンド
const (
	LedgerBackendFile     = "file"
	LedgerBackendPostgres = "postgres"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Feed
	FeedURI   string
	BskyHost  string
	FeedLimit int

	// Selection window（アカウントごとに上書き可能）
	Lookback     time.Duration
	MaxPerRun    int
	MaxPerAuthor int

	// Dispatch
	ActionInterval time.Duration
	HTTPTimeout    time.Duration
	DryRun         bool

	// Ledger
	LedgerBackend string
	LedgerDir     string
	DatabaseURL   string

	// Worker
	RunInterval    time.Duration
	RunConcurrency int
	OpsPort        string

	// Logging
	LogLevel string

	// Accounts
	AccountsFile string
	Accounts     []Account
}

// LoadEnvFiles は.envファイルを読み込み、未設定の環境変数のみを補完する。
// ファイルを指定しない場合はカレントディレクトリの.envを読み込む。
// 既定の.envが存在しない場合はエラーとしない。
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom はLoadと同様に設定を読み込む。
// accountsFileが空でない場合はACCOUNTS_FILEより優先する。
func LoadFrom(accountsFile string) (*Config, error) {
	cfg := &Config{}

	// Optional fields with defaults
	cfg.FeedURI = getEnvString("FEED_URI", os.Getenv("feed"))
	cfg.BskyHost = getEnvString("BSKY_HOST", "https://bsky.social")
	cfg.FeedLimit = clampFeedLimit(getEnvInt("FEED_LIMIT", 100))
	cfg.Lookback = getEnvDuration("LOOKBACK", 4*time.Hour)
	cfg.MaxPerRun = getEnvInt("MAX_PER_RUN", 30)
	cfg.MaxPerAuthor = getEnvInt("MAX_PER_AUTHOR", 3)
	cfg.ActionInterval = getEnvDuration("ACTION_INTERVAL", 0)
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	cfg.DryRun = getEnvBool("DRY_RUN", false)
	cfg.LedgerBackend = strings.ToLower(getEnvString("LEDGER_BACKEND", LedgerBackendFile))
	cfg.LedgerDir = getEnvString("LEDGER_DIR", ".")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RunInterval = getEnvDuration("RUN_INTERVAL", 15*time.Minute)
	cfg.RunConcurrency = getEnvInt("RUN_CONCURRENCY", 1)
	cfg.OpsPort = getEnvString("OPS_PORT", "9090")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	cfg.AccountsFile = accountsFile
	if cfg.AccountsFile == "" {
		cfg.AccountsFile = os.Getenv("ACCOUNTS_FILE")
	}

	// Required fields
	var missing []string

	switch cfg.LedgerBackend {
	case LedgerBackendFile:
	case LedgerBackendPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("unsupported LEDGER_BACKEND: %q", cfg.LedgerBackend)
	}

	if cfg.AccountsFile != "" {
		accounts, err := LoadAccountsFile(cfg.AccountsFile)
		if err != nil {
			return nil, err
		}
		cfg.Accounts = accounts
	} else {
		cfg.Accounts = parseAccountTags(os.Getenv("ACCOUNTS"))
	}
	if len(cfg.Accounts) == 0 {
		missing = append(missing, "ACCOUNTS")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	return cfg, nil
}

// LoadDatabaseURL はマイグレーション・prune用にDATABASE_URLのみを読み込む。
func LoadDatabaseURL() (string, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return "", errors.New("required environment variables are not set: [DATABASE_URL]")
	}
	return url, nil
}

// SelectAccounts はタグで指定されたアカウントのみを設定の順序で返す。
// tagsが空の場合は全アカウントを返す。未知のタグはエラーとする。
func (c *Config) SelectAccounts(tags []string) ([]Account, error) {
	if len(tags) == 0 {
		return c.Accounts, nil
	}

	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[strings.ToUpper(strings.TrimSpace(t))] = true
	}

	var out []Account
	for _, a := range c.Accounts {
		if want[a.Tag] {
			out = append(out, a)
			delete(want, a.Tag)
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for t := range want {
			unknown = append(unknown, t)
		}
		return nil, fmt.Errorf("unknown account tags: %v", unknown)
	}
	return out, nil
}

func parseAccountTags(v string) []Account {
	var accounts []Account
	seen := make(map[string]bool)
	for _, raw := range strings.Split(v, ",") {
		tag := strings.ToUpper(strings.TrimSpace(raw))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		accounts = append(accounts, Account{Tag: tag})
	}
	return accounts
}

func clampFeedLimit(n int) int {
	if n < 1 || n > 100 {
		return 100
	}
	return n
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
