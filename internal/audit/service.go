// Package audit は管理者向けの監査ログ照会機能を提供する。
package audit

import (
	"context"

	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/repository"
)

// Service は監査ログの照会と集計を提供する。
type Service struct {
	auditRepo repository.AuditLogRepository
	regRepo   repository.RegistrationRepository
}

// NewService はServiceを生成する。
func NewService(auditRepo repository.AuditLogRepository, regRepo repository.RegistrationRepository) *Service {
	return &Service{auditRepo: auditRepo, regRepo: regRepo}
}

// ListLogs は条件に合致する監査レコードを新しい順で返す。
func (s *Service) ListLogs(ctx context.Context, filter repository.LogFilter) ([]*model.LogRecord, error) {
	return s.auditRepo.List(ctx, filter)
}

// Stats は監査ログの集計情報を表す。
type Stats struct {
	RegisteredUsers int
	TotalLogs       int
	CountByType     map[model.LogType]int
}

// GetStats は登録ユーザー数と監査レコードの種別別件数を返す。
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	counts, err := s.auditRepo.CountByType(ctx)
	if err != nil {
		return nil, err
	}

	regs, err := s.regRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return &Stats{
		RegisteredUsers: len(regs),
		TotalLogs:       total,
		CountByType:     counts,
	}, nil
}
