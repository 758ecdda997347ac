// Package refresh はプロジェクト/チームキャッシュのバックグラウンド更新を提供する。
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/dakoku/internal/model"
)

// CatalogRefresher はキャッシュ更新の実行インターフェース。
type CatalogRefresher interface {
	// RefreshProjects はJibbleからプロジェクト一覧を取得しキャッシュを更新する。
	RefreshProjects(ctx context.Context) ([]model.Project, error)
	// RefreshTeams はJibbleからチームメンバー一覧を取得しキャッシュを更新する。
	RefreshTeams(ctx context.Context) ([]model.TeamMember, error)
}

// Job はプロジェクト/チームキャッシュの定期更新ジョブ。
// 失敗してもプロセスは継続し、次のティックで再試行する。
type Job struct {
	catalog CatalogRefresher
	logger  *slog.Logger
}

// NewJob はJobの新しいインスタンスを生成する。
func NewJob(catalog CatalogRefresher, logger *slog.Logger) *Job {
	return &Job{
		catalog: catalog,
		logger:  logger,
	}
}

// Start は指定間隔のティッカーでキャッシュ更新を起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("キャッシュ更新ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	j.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("キャッシュ更新ジョブを停止しました")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce はプロジェクトとチームのキャッシュ更新を1回実行する。
// 片方の失敗はもう片方の更新を妨げない。
func (j *Job) RunOnce(ctx context.Context) {
	if projects, err := j.catalog.RefreshProjects(ctx); err != nil {
		j.logger.Error("プロジェクトキャッシュの更新に失敗しました",
			slog.String("error", err.Error()),
		)
	} else {
		j.logger.Info("プロジェクトキャッシュを更新しました",
			slog.Int("count", len(projects)),
		)
	}

	if teams, err := j.catalog.RefreshTeams(ctx); err != nil {
		j.logger.Error("チームキャッシュの更新に失敗しました",
			slog.String("error", err.Error()),
		)
	} else {
		j.logger.Info("チームキャッシュを更新しました",
			slog.Int("count", len(teams)),
		)
	}
}
