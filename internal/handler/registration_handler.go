// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/dakoku/internal/model"
)

// RegistrationServiceInterface は登録ハンドラーが必要とするサービスインターフェース。
type RegistrationServiceInterface interface {
	// Register はチャットユーザーを登録し、Jibbleの人物レコードとの紐付けを試みる。
	Register(ctx context.Context, externalUserID, displayName, email string) (*model.Registration, error)
	// Unregister は登録を解除する。
	Unregister(ctx context.Context, externalUserID string) error
	// Get は登録情報を取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, externalUserID string) (*model.Registration, error)
	// List は全登録を返す。
	List(ctx context.Context) ([]*model.Registration, error)
}

// RegistrationHandler はユーザー登録管理のHTTPハンドラー。
type RegistrationHandler struct {
	service RegistrationServiceInterface
}

// NewRegistrationHandler はRegistrationHandlerを生成する。
func NewRegistrationHandler(service RegistrationServiceInterface) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// registerUserRequest はユーザー登録リクエストのボディ。
type registerUserRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// registrationResponse は登録情報のAPIレスポンス。
type registrationResponse struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	PersonResolved bool   `json:"person_resolved"`
	CreatedAt      string `json:"created_at"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Register はユーザー登録を処理する。
// POST /api/users
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	reg, err := h.service.Register(r.Context(), req.UserID, req.Name, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toRegistrationResponse(reg))
}

// Unregister は登録解除を処理する。
// DELETE /api/users/:id
func (h *RegistrationHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	externalUserID := chi.URLParam(r, "id")

	if err := h.service.Unregister(r.Context(), externalUserID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetUser は登録情報の取得を処理する。
// GET /api/users/:id
func (h *RegistrationHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	externalUserID := chi.URLParam(r, "id")

	reg, err := h.service.Get(r.Context(), externalUserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if reg == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewRegistrationNotFoundError(externalUserID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toRegistrationResponse(reg))
}

// ListUsers は全登録の一覧取得を処理する。
// GET /api/users
func (h *RegistrationHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	regs, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]registrationResponse, 0, len(regs))
	for _, reg := range regs {
		resp = append(resp, toRegistrationResponse(reg))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"users": resp})
}

// --- ヘルパー関数 ---

// toRegistrationResponse はmodel.RegistrationからAPIレスポンスに変換する。
func toRegistrationResponse(reg *model.Registration) registrationResponse {
	return registrationResponse{
		UserID:         reg.ExternalUserID,
		Name:           reg.DisplayName,
		PersonResolved: reg.PersonID != nil,
		CreatedAt:      reg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeNotRegistered:
		return http.StatusBadRequest
	case model.ErrCodeDuplicateRegistration:
		return http.StatusConflict
	case model.ErrCodeRegistrationNotFound:
		return http.StatusNotFound
	case model.ErrCodeNoActiveSession:
		return http.StatusConflict
	case model.ErrCodeAuthFailed, model.ErrCodeUpstreamFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
