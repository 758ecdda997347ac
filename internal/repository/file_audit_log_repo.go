package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/store"
)

// FileAuditLogRepo はJSONファイルストアを使用した監査ログリポジトリ。
type FileAuditLogRepo struct {
	store *store.FileStore
}

// NewFileAuditLogRepo はFileAuditLogRepoを生成する。
func NewFileAuditLogRepo(s *store.FileStore) *FileAuditLogRepo {
	return &FileAuditLogRepo{store: s}
}

// Append は監査レコードを末尾に追記する。
func (r *FileAuditLogRepo) Append(ctx context.Context, rec *model.LogRecord) error {
	err := r.store.Update(func(doc *store.Document) error {
		doc.Logs = append(doc.Logs, rec)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append log record: %w", err)
	}
	return nil
}

// List は条件に合致するレコードを新しい順で返す。
// Limitが0以下の場合は全件を返す。
func (r *FileAuditLogRepo) List(ctx context.Context, filter LogFilter) ([]*model.LogRecord, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load log records: %w", err)
	}

	// 追記順に保存されているため、末尾から走査すると新しい順になる
	var results []*model.LogRecord
	for i := len(doc.Logs) - 1; i >= 0; i-- {
		rec := doc.Logs[i]
		if filter.Type != "" && rec.Type != filter.Type {
			continue
		}
		if filter.ExternalUserID != "" && rec.ExternalUserID != filter.ExternalUserID {
			continue
		}
		results = append(results, rec)
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results, nil
}

// CountByType は種別ごとのレコード数を返す。
func (r *FileAuditLogRepo) CountByType(ctx context.Context) (map[model.LogType]int, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load log records: %w", err)
	}

	counts := make(map[model.LogType]int)
	for _, rec := range doc.Logs {
		counts[rec.Type]++
	}
	return counts, nil
}

// compile-time interface check
var _ AuditLogRepository = (*FileAuditLogRepo)(nil)
