package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/feedboost/internal/model"
)

// HealthChecker は依存先（DBなど）の疎通確認インターフェース。
// *sql.DB が満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// StatusProvider は直近の実行結果を提供するインターフェース。
type StatusProvider interface {
	Statuses() []model.RunStatus
}

// OpsHandler は運用向けエンドポイント（ヘルスチェック、実行状況）のHTTPハンドラー。
type OpsHandler struct {
	health HealthChecker
	status StatusProvider
	logger *slog.Logger
}

// NewOpsHandler はOpsHandlerを生成する。healthがnilの場合は常に正常とみなす。
func NewOpsHandler(health HealthChecker, status StatusProvider, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{
		health: health,
		status: status,
		logger: logger,
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type statusResponse struct {
	Runs []model.RunStatus `json:"runs"`
}

// Health はプロセスと依存先の状態を返す。
// GET /health
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.PingContext(ctx); err != nil {
			h.logger.Warn("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: "database unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// Status はアカウントごとの直近の実行結果を返す。
// GET /status
func (h *OpsHandler) Status(w http.ResponseWriter, r *http.Request) {
	runs := []model.RunStatus{}
	if h.status != nil {
		if s := h.status.Statuses(); s != nil {
			runs = s
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{Runs: runs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
