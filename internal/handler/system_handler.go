package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// StoreChecker はヘルスチェックでストアの読み取り可否を確認するためのインターフェース。
type StoreChecker interface {
	// Ping はストアが読み取り可能であることを確認する。
	Ping() error
}

// SystemHandler はヘルスチェック・稼働情報のHTTPハンドラー。
type SystemHandler struct {
	version   string
	startTime time.Time
	store     StoreChecker
}

// NewSystemHandler はSystemHandlerを生成する。
// storeにはnilを渡してもよい（その場合ストアチェックをスキップする）。
func NewSystemHandler(version string, store StoreChecker) *SystemHandler {
	return &SystemHandler{
		version:   version,
		startTime: time.Now(),
		store:     store,
	}
}

// Health はヘルスチェックを処理する。ストアが読めない場合は503を返す。
// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.store != nil {
		if err := h.store.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Status は稼働状態を処理する。
// GET /status
func (h *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "running",
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// Info はサービス情報を処理する。
// GET /info
func (h *SystemHandler) Info(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "dakoku",
		"version": h.version,
		"endpoints": []string{
			"POST /api/users",
			"GET /api/users",
			"GET /api/users/{id}",
			"DELETE /api/users/{id}",
			"POST /api/clockin",
			"POST /api/clockout",
			"GET /api/status",
			"GET /api/timesheet",
			"GET /api/projects",
			"GET /api/team",
			"GET /admin/logs",
			"GET /admin/stats",
		},
	})
}
