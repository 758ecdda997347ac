package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/dakoku/internal/model"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	// Projects はプロジェクト一覧を返す（キャッシュ優先）。
	Projects(ctx context.Context) ([]model.Project, error)
	// Teams はチームメンバー一覧を返す（キャッシュ優先）。
	Teams(ctx context.Context) ([]model.TeamMember, error)
}

// CatalogHandler はプロジェクト・チーム一覧のHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListProjects はプロジェクト一覧の取得を処理する。
// GET /api/projects
func (h *CatalogHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.Projects(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if projects == nil {
		projects = []model.Project{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"projects": projects})
}

// ListTeam はチームメンバー一覧の取得を処理する。
// GET /api/team
func (h *CatalogHandler) ListTeam(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.Teams(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if members == nil {
		members = []model.TeamMember{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"team": members})
}
