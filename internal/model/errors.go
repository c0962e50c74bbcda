package model

import "fmt"

// エラー種別コード
const (
	ErrCodeMissingCredential = "MISSING_CREDENTIAL"
	ErrCodeMissingFeed       = "MISSING_FEED"
	ErrCodeInvalidWindow     = "INVALID_WINDOW"
	ErrCodeAuthFailed        = "AUTH_FAILED"
	ErrCodeFetchFailed       = "FETCH_FAILED"
	ErrCodeLedgerLoad        = "LEDGER_LOAD_FAILED"
	ErrCodeLedgerSave        = "LEDGER_SAVE_FAILED"
)

// ConfigError は実行単位（アカウント×フィード）の設定不備を表す。
// 該当する実行単位のみスキップし、他の実行単位は継続する。
type ConfigError struct {
	Code    string
	Account string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ConfigError) Error() string {
	return fmt.Sprintf("[%s] account %s: %s", e.Code, e.Account, e.Message)
}

// RetrievalError は認証またはフィード取得の失敗を表す。
// 該当する実行のみ致命的で、台帳は変更されない。
type RetrievalError struct {
	Code    string
	Account string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *RetrievalError) Error() string {
	return fmt.Sprintf("[%s] account %s: %v", e.Code, e.Account, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// StorageError は台帳の読み込みまたは書き込みの失敗を表す。
type StorageError struct {
	Code    string
	Account string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *StorageError) Error() string {
	return fmt.Sprintf("[%s] account %s: %v", e.Code, e.Account, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewMissingCredentialError は認証情報が未設定の場合のエラーを生成する。
func NewMissingCredentialError(account string, envNames ...string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingCredential,
		Account: account,
		Message: fmt.Sprintf("credentials are not set: %v", envNames),
	}
}

// NewMissingFeedError はフィードIDが未設定の場合のエラーを生成する。
func NewMissingFeedError(account string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingFeed,
		Account: account,
		Message: "feed identifier is not set",
	}
}

// NewInvalidWindowError は選択ウィンドウが不正な場合のエラーを生成する。
func NewInvalidWindowError(account, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidWindow,
		Account: account,
		Message: reason,
	}
}
