package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/feedboost/internal/model"
)

// Account は1つのアカウント設定を表す。
// 未指定の項目はグローバル設定の値を使用する。
type Account struct {
	Tag          string        `yaml:"tag"`
	Feed         string        `yaml:"feed"`
	UsernameEnv  string        `yaml:"username_env"`
	PasswordEnv  string        `yaml:"password_env"`
	Lookback     time.Duration `yaml:"lookback"`
	MaxPerRun    *int          `yaml:"max_per_run"`
	MaxPerAuthor *int          `yaml:"max_per_author"`
	LedgerFile   string        `yaml:"ledger_file"`
}

type accountsFile struct {
	Accounts []Account `yaml:"accounts"`
}

// LoadAccountsFile はYAML形式のアカウント設定ファイルを読み込む。
//
//	accounts:
//	  - tag: BG
//	    feed: at://did:plc:xxx/app.bsky.feed.generator/bg
//	    lookback: 2h
func LoadAccountsFile(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	var f accountsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file %s: %w", filepath.Base(path), err)
	}

	seen := make(map[string]bool, len(f.Accounts))
	for i := range f.Accounts {
		a := &f.Accounts[i]
		a.Tag = strings.ToUpper(strings.TrimSpace(a.Tag))
		if a.Tag == "" {
			return nil, fmt.Errorf("accounts[%d]: tag is required", i)
		}
		if seen[a.Tag] {
			return nil, fmt.Errorf("accounts[%d]: duplicate tag %q", i, a.Tag)
		}
		seen[a.Tag] = true
		if a.Lookback < 0 {
			return nil, fmt.Errorf("accounts[%d]: lookback must not be negative", i)
		}
	}

	return f.Accounts, nil
}

// CredentialEnv は認証情報を読み込む環境変数名を返す。
func (a Account) CredentialEnv() (username, password string) {
	username = a.UsernameEnv
	if username == "" {
		username = "BSKY_USERNAME_" + a.Tag
	}
	password = a.PasswordEnv
	if password == "" {
		password = "BSKY_PASSWORD_" + a.Tag
	}
	return username, password
}

// Credentials は環境変数から認証情報を読み込む。
// 未設定の項目は空文字列のまま返し、検証は実行時に行う。
func (a Account) Credentials() model.Credentials {
	userEnv, passEnv := a.CredentialEnv()
	return model.Credentials{
		Identifier: os.Getenv(userEnv),
		Password:   os.Getenv(passEnv),
	}
}

// FeedURI はアカウントの対象フィードを返す。未指定の場合はグローバル設定を使用する。
func (a Account) FeedURI(cfg *Config) string {
	if a.Feed != "" {
		return a.Feed
	}
	return cfg.FeedURI
}

// Window はグローバル設定に上書きを適用した選択ウィンドウを返す。
func (a Account) Window(cfg *Config) model.Window {
	w := model.Window{
		Lookback:     cfg.Lookback,
		MaxPerRun:    cfg.MaxPerRun,
		MaxPerAuthor: cfg.MaxPerAuthor,
	}
	if a.Lookback > 0 {
		w.Lookback = a.Lookback
	}
	if a.MaxPerRun != nil {
		w.MaxPerRun = *a.MaxPerRun
	}
	if a.MaxPerAuthor != nil {
		w.MaxPerAuthor = *a.MaxPerAuthor
	}
	return w
}
