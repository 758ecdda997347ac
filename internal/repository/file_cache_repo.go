package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/store"
)

// FileCacheRepo はJSONファイルストアを使用したプロジェクト/チームキャッシュリポジトリ。
type FileCacheRepo struct {
	store *store.FileStore
}

// NewFileCacheRepo はFileCacheRepoを生成する。
func NewFileCacheRepo(s *store.FileStore) *FileCacheRepo {
	return &FileCacheRepo{store: s}
}

// GetProjects はキャッシュされたプロジェクト一覧を返す。
func (r *FileCacheRepo) GetProjects(ctx context.Context) ([]model.Project, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load project cache: %w", err)
	}
	return doc.Projects, nil
}

// SaveProjects はプロジェクト一覧キャッシュを置き換える。
func (r *FileCacheRepo) SaveProjects(ctx context.Context, projects []model.Project) error {
	err := r.store.Update(func(doc *store.Document) error {
		doc.Projects = projects
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save project cache: %w", err)
	}
	return nil
}

// GetTeams はキャッシュされたチームメンバー一覧を返す。
func (r *FileCacheRepo) GetTeams(ctx context.Context) ([]model.TeamMember, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load team cache: %w", err)
	}
	return doc.Teams, nil
}

// SaveTeams はチームメンバー一覧キャッシュを置き換える。
func (r *FileCacheRepo) SaveTeams(ctx context.Context, teams []model.TeamMember) error {
	err := r.store.Update(func(doc *store.Document) error {
		doc.Teams = teams
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save team cache: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CacheRepository = (*FileCacheRepo)(nil)
