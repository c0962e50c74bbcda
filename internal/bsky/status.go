package bsky

import (
	"fmt"
	"net/http"
)

// StatusClass はHTTPステータスコードに基づくXRPC応答の分類。
type StatusClass int

const (
	// StatusOK は成功（2xx）。
	StatusOK StatusClass = iota
	// StatusAuth は認証・認可エラー（401/403）。
	StatusAuth
	// StatusRateLimited はレート制限（429）。
	StatusRateLimited
	// StatusServer はサーバーエラー（5xx）。
	StatusServer
	// StatusBadRequest はその他のクライアントエラー（4xx）。
	StatusBadRequest
	// StatusUnknown は未知のステータスコード。
	StatusUnknown
)

// String はメトリクスラベルやログ用の文字列表現を返す。
func (c StatusClass) String() string {
	switch c {
	case StatusOK:
		return "ok"
	case StatusAuth:
		return "auth"
	case StatusRateLimited:
		return "rate_limited"
	case StatusServer:
		return "server"
	case StatusBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// ClassifyHTTPStatus はHTTPステータスコードを分類する。
func ClassifyHTTPStatus(statusCode int) StatusClass {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return StatusOK
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return StatusAuth
	case statusCode == http.StatusTooManyRequests:
		return StatusRateLimited
	case statusCode >= 500:
		return StatusServer
	case statusCode >= 400:
		return StatusBadRequest
	default:
		return StatusUnknown
	}
}

// APIError はXRPCが2xx以外を返した場合のエラー。
type APIError struct {
	Method     string
	StatusCode int
	// Name はXRPCのエラー名（例: AuthenticationRequired）。
	Name    string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("xrpc %s: status %d", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("xrpc %s: status %d: %s: %s", e.Method, e.StatusCode, e.Name, e.Message)
}

// Class はエラーのステータス分類を返す。
func (e *APIError) Class() StatusClass {
	return ClassifyHTTPStatus(e.StatusCode)
}
