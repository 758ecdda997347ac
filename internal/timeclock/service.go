// Package timeclock は打刻操作（クロックイン/アウト、状態照会、タイムシート）を提供する。
package timeclock

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/dakoku/internal/jibble"
	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/repository"
	"github.com/hitoshi/dakoku/internal/security"
)

// SessionFinder は打刻セッション解決のインターフェース。jibble.SessionResolverが実装する。
type SessionFinder interface {
	// FindOpenEntry は進行中エントリを返す。見つからない場合はnilを返す。
	FindOpenEntry(ctx context.Context, personID string) (*model.TimeEntry, error)
	// Status は現在のセッション状態を返す。
	Status(ctx context.Context, personID string) (*jibble.SessionStatus, error)
}

// Clocker はJibbleへの打刻実行インターフェース。jibble.Clientが実装する。
type Clocker interface {
	ClockIn(ctx context.Context, personID, projectID, note string) ([]byte, error)
	ClockOut(ctx context.Context, personID string) ([]byte, error)
}

// Metrics は打刻操作のメトリクス記録インターフェース。metrics.Collectorが実装する。
type Metrics interface {
	RecordClockIn()
	RecordClockOut()
	RecordClockError(kind string)
}

// Service は打刻に関するビジネスロジックを提供する。
// 打刻の成否はすべて監査ログに記録する（失敗は種別に_errorサフィックス）。
type Service struct {
	regRepo   repository.RegistrationRepository
	auditRepo repository.AuditLogRepository
	sessions  SessionFinder
	clocker   Clocker
	entries   jibble.TimeEntryLister
	sanitizer security.NameSanitizerService
	metrics   Metrics          // nil可
	now       func() time.Time // テスト用に差し替え可能
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	regRepo repository.RegistrationRepository,
	auditRepo repository.AuditLogRepository,
	sessions SessionFinder,
	clocker Clocker,
	entries jibble.TimeEntryLister,
	sanitizer security.NameSanitizerService,
	metrics Metrics,
) *Service {
	return &Service{
		regRepo:   regRepo,
		auditRepo: auditRepo,
		sessions:  sessions,
		clocker:   clocker,
		entries:   entries,
		sanitizer: sanitizer,
		metrics:   metrics,
		now:       time.Now,
	}
}

// ClockInResult はクロックイン成功時の結果。
type ClockInResult struct {
	DisplayName string
	Time        time.Time
}

// ClockIn は指定チャットユーザーのクロックインを実行する。
// 登録済みかつ人物IDが解決済みであることを要求する。
func (s *Service) ClockIn(ctx context.Context, externalUserID, projectID, note string) (*ClockInResult, error) {
	reg, err := s.resolveRegistration(ctx, externalUserID)
	if err != nil {
		s.appendAudit(ctx, model.LogTypeClockInError, externalUserID, err.Error(), "")
		s.recordError("clockin")
		return nil, err
	}

	note = s.sanitizer.Sanitize(note)

	upstream, err := s.clocker.ClockIn(ctx, *reg.PersonID, projectID, note)
	if err != nil {
		s.appendAudit(ctx, model.LogTypeClockInError, externalUserID, err.Error(), "")
		s.recordError("clockin")
		return nil, err
	}

	now := s.now()
	s.appendAudit(ctx, model.LogTypeClockIn, externalUserID,
		fmt.Sprintf("クロックイン: %s", reg.DisplayName), string(upstream))
	if s.metrics != nil {
		s.metrics.RecordClockIn()
	}

	slog.Info("clock-in succeeded",
		slog.String("external_user_id", externalUserID),
	)

	return &ClockInResult{DisplayName: reg.DisplayName, Time: now}, nil
}

// ClockOutResult はクロックアウト成功時の結果。
// Hoursは応答メッセージ用の参考値であり、正式な勤務時間はJibble側が管理する。
type ClockOutResult struct {
	DisplayName string
	Start       time.Time
	Time        time.Time
	Hours       float64
}

// ClockOut は指定チャットユーザーのクロックアウトを実行する。
// 進行中エントリがちょうど1件存在することを要求する。
// 進行中エントリがない場合はJibbleへのクロックアウト呼び出しを行わずにエラーを返す。
func (s *Service) ClockOut(ctx context.Context, externalUserID string) (*ClockOutResult, error) {
	reg, err := s.resolveRegistration(ctx, externalUserID)
	if err != nil {
		s.appendAudit(ctx, model.LogTypeClockOutError, externalUserID, err.Error(), "")
		s.recordError("clockout")
		return nil, err
	}

	open, err := s.sessions.FindOpenEntry(ctx, *reg.PersonID)
	if err != nil {
		s.appendAudit(ctx, model.LogTypeClockOutError, externalUserID, err.Error(), "")
		s.recordError("clockout")
		return nil, err
	}
	if open == nil {
		apiErr := model.NewNoActiveSessionError(externalUserID)
		s.appendAudit(ctx, model.LogTypeClockOutError, externalUserID, apiErr.Error(), "")
		s.recordError("clockout")
		return nil, apiErr
	}

	upstream, err := s.clocker.ClockOut(ctx, *reg.PersonID)
	if err != nil {
		s.appendAudit(ctx, model.LogTypeClockOutError, externalUserID, err.Error(), "")
		s.recordError("clockout")
		return nil, err
	}

	now := s.now()
	hours := jibble.RoundHours(now.Sub(open.Start))

	s.appendAudit(ctx, model.LogTypeClockOut, externalUserID,
		fmt.Sprintf("クロックアウト: %s (%.2f時間)", reg.DisplayName, hours), string(upstream))
	if s.metrics != nil {
		s.metrics.RecordClockOut()
	}

	slog.Info("clock-out succeeded",
		slog.String("external_user_id", externalUserID),
		slog.Float64("hours", hours),
	)

	return &ClockOutResult{
		DisplayName: reg.DisplayName,
		Start:       open.Start,
		Time:        now,
		Hours:       hours,
	}, nil
}

// Status は指定チャットユーザーの現在のセッション状態を返す。
func (s *Service) Status(ctx context.Context, externalUserID string) (*jibble.SessionStatus, error) {
	reg, err := s.resolveRegistration(ctx, externalUserID)
	if err != nil {
		return nil, err
	}
	return s.sessions.Status(ctx, *reg.PersonID)
}

// TimesheetEntry はタイムシートの1エントリを表す。
type TimesheetEntry struct {
	Start time.Time
	End   *time.Time
	Hours float64
}

// Timesheet は1日分の打刻一覧を表す。
type Timesheet struct {
	Date       string // YYYY-MM-DD
	Entries    []TimesheetEntry
	TotalHours float64
}

// TodayTimesheet は指定チャットユーザーの当日分タイムシートを返す。
// 進行中エントリは現在時刻までを経過時間として集計する。
func (s *Service) TodayTimesheet(ctx context.Context, externalUserID string) (*Timesheet, error) {
	reg, err := s.resolveRegistration(ctx, externalUserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	entries, err := s.entries.ListTimeEntries(ctx, *reg.PersonID, dayStart, now)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Start.Before(entries[j].Start)
	})

	sheet := &Timesheet{
		Date:    now.Format("2006-01-02"),
		Entries: make([]TimesheetEntry, 0, len(entries)),
	}
	for _, e := range entries {
		end := now
		if e.End != nil {
			end = *e.End
		}
		hours := jibble.RoundHours(end.Sub(e.Start))
		sheet.Entries = append(sheet.Entries, TimesheetEntry{
			Start: e.Start,
			End:   e.End,
			Hours: hours,
		})
		sheet.TotalHours += hours
	}
	sheet.TotalHours = math.Round(sheet.TotalHours*100) / 100

	return sheet, nil
}

// resolveRegistration は登録を取得し、人物IDが解決済みであることを検証する。
func (s *Service) resolveRegistration(ctx context.Context, externalUserID string) (*model.Registration, error) {
	if externalUserID == "" {
		return nil, model.NewValidationError("user_idは必須です")
	}

	reg, err := s.regRepo.FindByExternalUserID(ctx, externalUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	if reg == nil || reg.PersonID == nil {
		return nil, model.NewNotRegisteredError(externalUserID)
	}
	return reg, nil
}

// recordError は打刻失敗メトリクスを記録する。
func (s *Service) recordError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordClockError(kind)
	}
}

// appendAudit は監査レコードを追記する。追記失敗は警告ログのみ。
func (s *Service) appendAudit(ctx context.Context, logType model.LogType, externalUserID, details, upstreamResponse string) {
	rec := &model.LogRecord{
		ID:               uuid.New().String(),
		Type:             logType,
		ExternalUserID:   externalUserID,
		Details:          details,
		Timestamp:        s.now(),
		UpstreamResponse: upstreamResponse,
	}
	if err := s.auditRepo.Append(ctx, rec); err != nil {
		slog.Warn("監査レコードの追記に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
