// Package catalog はプロジェクト/チームメンバー一覧の提供とキャッシュ管理を行う。
// 一覧はローカルストアにキャッシュされ、空の場合のみ同期的にJibbleから取得する。
// キャッシュの定期更新はworker/refreshが担う。
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/dakoku/internal/jibble"
	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/repository"
)

// UpstreamCatalog はJibbleからの一覧取得インターフェース。jibble.Clientが実装する。
type UpstreamCatalog interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	ListPeople(ctx context.Context) ([]jibble.Person, error)
}

// Service はプロジェクト/チーム一覧の取得とキャッシュの更新を提供する。
type Service struct {
	cacheRepo repository.CacheRepository
	upstream  UpstreamCatalog
}

// NewService はServiceを生成する。
func NewService(cacheRepo repository.CacheRepository, upstream UpstreamCatalog) *Service {
	return &Service{cacheRepo: cacheRepo, upstream: upstream}
}

// Projects はプロジェクト一覧を返す。
// キャッシュがあればキャッシュを返し、空の場合はJibbleから取得してキャッシュする。
func (s *Service) Projects(ctx context.Context) ([]model.Project, error) {
	cached, err := s.cacheRepo.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		return cached, nil
	}
	return s.RefreshProjects(ctx)
}

// RefreshProjects はJibbleからプロジェクト一覧を取得しキャッシュを置き換える。
func (s *Service) RefreshProjects(ctx context.Context) ([]model.Project, error) {
	projects, err := s.upstream.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}

	if err := s.cacheRepo.SaveProjects(ctx, projects); err != nil {
		// キャッシュ保存失敗は取得結果の返却を妨げない
		slog.Warn("プロジェクトキャッシュの保存に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	return projects, nil
}

// Teams はチームメンバー一覧を返す。
// キャッシュがあればキャッシュを返し、空の場合はJibbleから取得してキャッシュする。
func (s *Service) Teams(ctx context.Context) ([]model.TeamMember, error) {
	cached, err := s.cacheRepo.GetTeams(ctx)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		return cached, nil
	}
	return s.RefreshTeams(ctx)
}

// RefreshTeams はJibbleから人物一覧を取得しチームメンバーキャッシュを置き換える。
func (s *Service) RefreshTeams(ctx context.Context) ([]model.TeamMember, error) {
	people, err := s.upstream.ListPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch people: %w", err)
	}

	members := make([]model.TeamMember, len(people))
	for i, p := range people {
		members[i] = model.TeamMember{ID: p.ID, Name: p.FullName, Email: p.Email}
	}

	if err := s.cacheRepo.SaveTeams(ctx, members); err != nil {
		slog.Warn("チームキャッシュの保存に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	return members, nil
}
