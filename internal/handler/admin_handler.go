package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/dakoku/internal/audit"
	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/repository"
)

// AuditServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AuditServiceInterface interface {
	// ListLogs は条件に合致する監査レコードを新しい順で返す。
	ListLogs(ctx context.Context, filter repository.LogFilter) ([]*model.LogRecord, error)
	// GetStats は監査ログの集計情報を返す。
	GetStats(ctx context.Context) (*audit.Stats, error)
}

// AdminHandler は監査ログ閲覧・統計のHTTPハンドラー。
type AdminHandler struct {
	service AuditServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AuditServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// logResponse は監査レコードのAPIレスポンス。
type logResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
}

// defaultLogLimit はlimit未指定時の監査ログ取得件数。
const defaultLogLimit = 50

// ListLogs は監査ログの一覧取得を処理する。
// GET /admin/logs?type=...&user_id=...&limit=...
func (h *AdminHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	filter := repository.LogFilter{
		Type:           model.LogType(r.URL.Query().Get("type")),
		ExternalUserID: r.URL.Query().Get("user_id"),
		Limit:          defaultLogLimit,
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("limitは正の整数で指定してください"))
			return
		}
		filter.Limit = limit
	}

	logs, err := h.service.ListLogs(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]logResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, logResponse{
			ID:        l.ID,
			Type:      string(l.Type),
			UserID:    l.ExternalUserID,
			Details:   l.Details,
			Timestamp: l.Timestamp.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"logs": resp})
}

// GetStats は監査ログの統計取得を処理する。
// GET /admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	countByType := make(map[string]int, len(stats.CountByType))
	for t, c := range stats.CountByType {
		countByType[string(t)] = c
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"registered_users": stats.RegisteredUsers,
		"total_logs":       stats.TotalLogs,
		"count_by_type":    countByType,
	})
}
