// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/dakoku/internal/model"
)

// RegistrationRepository はユーザー登録の永続化インターフェース。
type RegistrationRepository interface {
	// FindByExternalUserID は指定チャットユーザーIDの登録を取得する。見つからない場合はnilを返す。
	FindByExternalUserID(ctx context.Context, externalUserID string) (*model.Registration, error)

	// Create は登録を作成する。同一ExternalUserIDの登録が既に存在する場合はエラーを返す。
	Create(ctx context.Context, reg *model.Registration) error

	// List は全登録を作成日時の昇順で返す。
	List(ctx context.Context) ([]*model.Registration, error)

	// DeleteByExternalUserID は指定チャットユーザーIDの登録を削除する。
	// 登録が存在しない場合は何もしない。
	DeleteByExternalUserID(ctx context.Context, externalUserID string) error
}

// LogFilter は監査ログ一覧取得の絞り込み条件を表す。
// ゼロ値は絞り込みなしを意味する。
type LogFilter struct {
	Type           model.LogType
	ExternalUserID string
	Limit          int
}

// AuditLogRepository は監査ログの永続化インターフェース。追記専用。
type AuditLogRepository interface {
	// Append は監査レコードを末尾に追記する。
	Append(ctx context.Context, rec *model.LogRecord) error

	// List は条件に合致するレコードを新しい順で返す。
	List(ctx context.Context, filter LogFilter) ([]*model.LogRecord, error)

	// CountByType は種別ごとのレコード数を返す。
	CountByType(ctx context.Context) (map[model.LogType]int, error)
}

// CredentialRepository はアクセス資格情報の永続化インターフェース。
// ウォームリスタート時のトークン再利用のために使用する。
type CredentialRepository interface {
	// Get は永続化された資格情報を取得する。存在しない場合はnilを返す。
	Get(ctx context.Context) (*model.Credential, error)

	// Save は資格情報を永続化する。既存の資格情報は上書きされる。
	Save(ctx context.Context, cred *model.Credential) error
}

// CacheRepository はプロジェクト/チーム一覧キャッシュの永続化インターフェース。
type CacheRepository interface {
	// GetProjects はキャッシュされたプロジェクト一覧を返す。
	GetProjects(ctx context.Context) ([]model.Project, error)

	// SaveProjects はプロジェクト一覧キャッシュを置き換える。
	SaveProjects(ctx context.Context, projects []model.Project) error

	// GetTeams はキャッシュされたチームメンバー一覧を返す。
	GetTeams(ctx context.Context) ([]model.TeamMember, error)

	// SaveTeams はチームメンバー一覧キャッシュを置き換える。
	SaveTeams(ctx context.Context, teams []model.TeamMember) error
}
