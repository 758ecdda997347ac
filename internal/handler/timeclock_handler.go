package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/dakoku/internal/jibble"
	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/timeclock"
)

// TimeclockServiceInterface は打刻ハンドラーが必要とするサービスインターフェース。
type TimeclockServiceInterface interface {
	// ClockIn はクロックインを実行する。
	ClockIn(ctx context.Context, externalUserID, projectID, note string) (*timeclock.ClockInResult, error)
	// ClockOut はクロックアウトを実行する。
	ClockOut(ctx context.Context, externalUserID string) (*timeclock.ClockOutResult, error)
	// Status は現在の打刻状態を返す。
	Status(ctx context.Context, externalUserID string) (*jibble.SessionStatus, error)
	// TodayTimesheet は当日分の打刻一覧を返す。
	TodayTimesheet(ctx context.Context, externalUserID string) (*timeclock.Timesheet, error)
}

// TimeclockHandler は打刻操作のHTTPハンドラー。
type TimeclockHandler struct {
	service TimeclockServiceInterface
}

// NewTimeclockHandler はTimeclockHandlerを生成する。
func NewTimeclockHandler(service TimeclockServiceInterface) *TimeclockHandler {
	return &TimeclockHandler{service: service}
}

// clockInRequest はクロックインリクエストのボディ。
type clockInRequest struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	Note      string `json:"note"`
}

// clockOutRequest はクロックアウトリクエストのボディ。
type clockOutRequest struct {
	UserID string `json:"user_id"`
}

// ClockIn はクロックインを処理する。
// POST /api/clockin
func (h *TimeclockHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req clockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.UserID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("user_idが空です"))
		return
	}

	result, err := h.service.ClockIn(r.Context(), req.UserID, req.ProjectID, req.Note)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name": result.DisplayName,
		"time": result.Time.Format(time.RFC3339),
	})
}

// ClockOut はクロックアウトを処理する。
// POST /api/clockout
func (h *TimeclockHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req clockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.UserID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("user_idが空です"))
		return
	}

	result, err := h.service.ClockOut(r.Context(), req.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":  result.DisplayName,
		"start": result.Start.Format(time.RFC3339),
		"time":  result.Time.Format(time.RFC3339),
		"hours": result.Hours,
	})
}

// Status は打刻状態の取得を処理する。
// GET /api/status?user_id=...
func (h *TimeclockHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("user_idクエリパラメータが必要です"))
		return
	}

	status, err := h.service.Status(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := map[string]any{"clocked_in": status.ClockedIn}
	if status.ClockedIn {
		resp["start"] = status.Start.Format(time.RFC3339)
		resp["hours"] = status.Hours
	}
	if status.LastEnd != nil {
		resp["last_end"] = status.LastEnd.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Timesheet は当日分タイムシートの取得を処理する。
// GET /api/timesheet?user_id=...
func (h *TimeclockHandler) Timesheet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("user_idクエリパラメータが必要です"))
		return
	}

	sheet, err := h.service.TodayTimesheet(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entries := make([]map[string]any, 0, len(sheet.Entries))
	for _, e := range sheet.Entries {
		entry := map[string]any{
			"start": e.Start.Format(time.RFC3339),
			"hours": e.Hours,
		}
		if e.End != nil {
			entry["end"] = e.End.Format(time.RFC3339)
		}
		entries = append(entries, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"date":        sheet.Date,
		"entries":     entries,
		"total_hours": sheet.TotalHours,
	})
}
