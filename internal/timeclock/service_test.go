package timeclock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/dakoku/internal/jibble"
	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/repository"
)

// --- モック定義 ---

type mockRegistrationRepo struct {
	findFn func(ctx context.Context, externalUserID string) (*model.Registration, error)
}

func (m *mockRegistrationRepo) FindByExternalUserID(ctx context.Context, externalUserID string) (*model.Registration, error) {
	if m.findFn != nil {
		return m.findFn(ctx, externalUserID)
	}
	return nil, nil
}

func (m *mockRegistrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	return nil
}

func (m *mockRegistrationRepo) List(ctx context.Context) ([]*model.Registration, error) {
	return nil, nil
}

func (m *mockRegistrationRepo) DeleteByExternalUserID(ctx context.Context, externalUserID string) error {
	return nil
}

type mockAuditLogRepo struct {
	records []*model.LogRecord
}

func (m *mockAuditLogRepo) Append(ctx context.Context, rec *model.LogRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *mockAuditLogRepo) List(ctx context.Context, filter repository.LogFilter) ([]*model.LogRecord, error) {
	return m.records, nil
}

func (m *mockAuditLogRepo) CountByType(ctx context.Context) (map[model.LogType]int, error) {
	return nil, nil
}

type mockSessionFinder struct {
	findOpenFn func(ctx context.Context, personID string) (*model.TimeEntry, error)
	statusFn   func(ctx context.Context, personID string) (*jibble.SessionStatus, error)
}

func (m *mockSessionFinder) FindOpenEntry(ctx context.Context, personID string) (*model.TimeEntry, error) {
	if m.findOpenFn != nil {
		return m.findOpenFn(ctx, personID)
	}
	return nil, nil
}

func (m *mockSessionFinder) Status(ctx context.Context, personID string) (*jibble.SessionStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, personID)
	}
	return &jibble.SessionStatus{}, nil
}

type mockClocker struct {
	clockInFn     func(ctx context.Context, personID, projectID, note string) ([]byte, error)
	clockOutFn    func(ctx context.Context, personID string) ([]byte, error)
	clockOutCalls int
}

func (m *mockClocker) ClockIn(ctx context.Context, personID, projectID, note string) ([]byte, error) {
	if m.clockInFn != nil {
		return m.clockInFn(ctx, personID, projectID, note)
	}
	return []byte(`{}`), nil
}

func (m *mockClocker) ClockOut(ctx context.Context, personID string) ([]byte, error) {
	m.clockOutCalls++
	if m.clockOutFn != nil {
		return m.clockOutFn(ctx, personID)
	}
	return []byte(`{}`), nil
}

type mockEntryLister struct {
	listFn func(ctx context.Context, personID string, from, to time.Time) ([]model.TimeEntry, error)
}

func (m *mockEntryLister) ListTimeEntries(ctx context.Context, personID string, from, to time.Time) ([]model.TimeEntry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, personID, from, to)
	}
	return nil, nil
}

type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string { return raw }

type mockMetrics struct {
	clockIns    int
	clockOuts   int
	clockErrors map[string]int
}

func (m *mockMetrics) RecordClockIn()  { m.clockIns++ }
func (m *mockMetrics) RecordClockOut() { m.clockOuts++ }
func (m *mockMetrics) RecordClockError(kind string) {
	if m.clockErrors == nil {
		m.clockErrors = make(map[string]int)
	}
	m.clockErrors[kind]++
}

// --- テストヘルパー ---

func strPtr(s string) *string { return &s }

func registeredRepo() *mockRegistrationRepo {
	return &mockRegistrationRepo{
		findFn: func(ctx context.Context, externalUserID string) (*model.Registration, error) {
			return &model.Registration{
				ID:             "reg-1",
				ExternalUserID: externalUserID,
				DisplayName:    "山田",
				PersonID:       strPtr("person-1"),
			}, nil
		},
	}
}

func newServiceForTest(
	regRepo *mockRegistrationRepo,
	auditRepo *mockAuditLogRepo,
	sessions *mockSessionFinder,
	clocker *mockClocker,
	metrics *mockMetrics,
) *Service {
	var m Metrics
	if metrics != nil {
		m = metrics
	}
	return NewService(regRepo, auditRepo, sessions, clocker, &mockEntryLister{}, passthroughSanitizer{}, m)
}

// --- ClockIn テスト ---

func TestService_ClockIn_Success(t *testing.T) {
	auditRepo := &mockAuditLogRepo{}
	metrics := &mockMetrics{}

	var gotPersonID, gotNote string
	clocker := &mockClocker{
		clockInFn: func(ctx context.Context, personID, projectID, note string) ([]byte, error) {
			gotPersonID = personID
			gotNote = note
			return []byte(`{"id": "entry-1"}`), nil
		},
	}

	svc := newServiceForTest(registeredRepo(), auditRepo, &mockSessionFinder{}, clocker, metrics)

	result, err := svc.ClockIn(context.Background(), "user-1", "p1", "リモート勤務")
	if err != nil {
		t.Fatalf("ClockIn() error = %v", err)
	}

	if result.DisplayName != "山田" {
		t.Errorf("DisplayName = %q, want %q", result.DisplayName, "山田")
	}
	if gotPersonID != "person-1" {
		t.Errorf("personID = %q, want %q", gotPersonID, "person-1")
	}
	if gotNote != "リモート勤務" {
		t.Errorf("note = %q, want %q", gotNote, "リモート勤務")
	}

	// 成功の監査レコードが残る
	if len(auditRepo.records) != 1 {
		t.Fatalf("audit record count = %d, want 1", len(auditRepo.records))
	}
	rec := auditRepo.records[0]
	if rec.Type != model.LogTypeClockIn {
		t.Errorf("record type = %q, want %q", rec.Type, model.LogTypeClockIn)
	}
	if rec.UpstreamResponse != `{"id": "entry-1"}` {
		t.Errorf("upstream response = %q, want raw body", rec.UpstreamResponse)
	}

	if metrics.clockIns != 1 {
		t.Errorf("clockin metric = %d, want 1", metrics.clockIns)
	}
}

func TestService_ClockIn_NotRegistered(t *testing.T) {
	auditRepo := &mockAuditLogRepo{}
	metrics := &mockMetrics{}

	regRepo := &mockRegistrationRepo{
		findFn: func(ctx context.Context, externalUserID string) (*model.Registration, error) {
			return nil, nil
		},
	}

	svc := newServiceForTest(regRepo, auditRepo, &mockSessionFinder{}, &mockClocker{}, metrics)

	_, err := svc.ClockIn(context.Background(), "user-unknown", "", "")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNotRegistered {
		t.Fatalf("error = %v, want NotRegisteredError", err)
	}

	// 失敗の監査レコードが残る
	if len(auditRepo.records) != 1 || auditRepo.records[0].Type != model.LogTypeClockInError {
		t.Errorf("audit records = %+v, want 1 clockin_error record", auditRepo.records)
	}
	if metrics.clockErrors["clockin"] != 1 {
		t.Errorf("clockin error metric = %d, want 1", metrics.clockErrors["clockin"])
	}
}

func TestService_ClockIn_PersonUnresolved(t *testing.T) {
	regRepo := &mockRegistrationRepo{
		findFn: func(ctx context.Context, externalUserID string) (*model.Registration, error) {
			// 登録はあるが人物解決が済んでいない
			return &model.Registration{ID: "reg-1", ExternalUserID: externalUserID, PersonID: nil}, nil
		},
	}

	svc := newServiceForTest(regRepo, &mockAuditLogRepo{}, &mockSessionFinder{}, &mockClocker{}, nil)

	_, err := svc.ClockIn(context.Background(), "user-1", "", "")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNotRegistered {
		t.Errorf("error = %v, want NotRegisteredError", err)
	}
}

func TestService_ClockIn_UpstreamFailureIsAudited(t *testing.T) {
	auditRepo := &mockAuditLogRepo{}
	clocker := &mockClocker{
		clockInFn: func(ctx context.Context, personID, projectID, note string) ([]byte, error) {
			return nil, model.NewUpstreamError("status 500")
		},
	}

	svc := newServiceForTest(registeredRepo(), auditRepo, &mockSessionFinder{}, clocker, nil)

	_, err := svc.ClockIn(context.Background(), "user-1", "", "")
	if err == nil {
		t.Fatal("ClockIn() error = nil, want UpstreamError")
	}

	if len(auditRepo.records) != 1 || auditRepo.records[0].Type != model.LogTypeClockInError {
		t.Errorf("audit records = %+v, want 1 clockin_error record", auditRepo.records)
	}
}

// --- ClockOut テスト ---

func TestService_ClockOut_Success(t *testing.T) {
	auditRepo := &mockAuditLogRepo{}
	metrics := &mockMetrics{}

	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	start := now.Add(-150 * time.Minute)

	sessions := &mockSessionFinder{
		findOpenFn: func(ctx context.Context, personID string) (*model.TimeEntry, error) {
			return &model.TimeEntry{ID: "entry-1", Start: start}, nil
		},
	}
	clocker := &mockClocker{}

	svc := newServiceForTest(registeredRepo(), auditRepo, sessions, clocker, metrics)
	svc.now = func() time.Time { return now }

	result, err := svc.ClockOut(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ClockOut() error = %v", err)
	}

	if result.Hours != 2.5 {
		t.Errorf("Hours = %v, want 2.5", result.Hours)
	}
	if !result.Start.Equal(start) {
		t.Errorf("Start = %v, want %v", result.Start, start)
	}
	if clocker.clockOutCalls != 1 {
		t.Errorf("clock-out upstream calls = %d, want 1", clocker.clockOutCalls)
	}
	if len(auditRepo.records) != 1 || auditRepo.records[0].Type != model.LogTypeClockOut {
		t.Errorf("audit records = %+v, want 1 clockout record", auditRepo.records)
	}
	if metrics.clockOuts != 1 {
		t.Errorf("clockout metric = %d, want 1", metrics.clockOuts)
	}
}

func TestService_ClockOut_NoActiveSession(t *testing.T) {
	auditRepo := &mockAuditLogRepo{}
	metrics := &mockMetrics{}

	sessions := &mockSessionFinder{
		findOpenFn: func(ctx context.Context, personID string) (*model.TimeEntry, error) {
			return nil, nil
		},
	}
	clocker := &mockClocker{}

	svc := newServiceForTest(registeredRepo(), auditRepo, sessions, clocker, metrics)

	_, err := svc.ClockOut(context.Background(), "user-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNoActiveSession {
		t.Fatalf("error = %v, want NoActiveSessionError", err)
	}

	// 進行中エントリがない場合はJibbleへのクロックアウト呼び出しを行わない
	if clocker.clockOutCalls != 0 {
		t.Errorf("clock-out upstream calls = %d, want 0", clocker.clockOutCalls)
	}
	if len(auditRepo.records) != 1 || auditRepo.records[0].Type != model.LogTypeClockOutError {
		t.Errorf("audit records = %+v, want 1 clockout_error record", auditRepo.records)
	}
	if metrics.clockErrors["clockout"] != 1 {
		t.Errorf("clockout error metric = %d, want 1", metrics.clockErrors["clockout"])
	}
}

// --- Status / TodayTimesheet テスト ---

func TestService_Status(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	sessions := &mockSessionFinder{
		statusFn: func(ctx context.Context, personID string) (*jibble.SessionStatus, error) {
			if personID != "person-1" {
				t.Errorf("personID = %q, want %q", personID, "person-1")
			}
			return &jibble.SessionStatus{ClockedIn: true, Start: start, Hours: 1.0}, nil
		},
	}

	svc := newServiceForTest(registeredRepo(), &mockAuditLogRepo{}, sessions, &mockClocker{}, nil)

	status, err := svc.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.ClockedIn || !status.Start.Equal(start) {
		t.Errorf("status = %+v, want clocked in at %v", status, start)
	}
}

func TestService_TodayTimesheet(t *testing.T) {
	now := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)

	entries := []model.TimeEntry{
		// 進行中エントリは現在時刻まで集計される
		{ID: "e2", Start: now.Add(-time.Hour)},
		{ID: "e1", Start: now.Add(-6 * time.Hour), End: timePtr(now.Add(-4 * time.Hour))},
	}

	lister := &mockEntryLister{
		listFn: func(ctx context.Context, personID string, from, to time.Time) ([]model.TimeEntry, error) {
			wantFrom := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
			if !from.Equal(wantFrom) {
				t.Errorf("from = %v, want %v", from, wantFrom)
			}
			return entries, nil
		},
	}

	svc := NewService(registeredRepo(), &mockAuditLogRepo{}, &mockSessionFinder{}, &mockClocker{}, lister, passthroughSanitizer{}, nil)
	svc.now = func() time.Time { return now }

	sheet, err := svc.TodayTimesheet(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("TodayTimesheet() error = %v", err)
	}

	if sheet.Date != "2025-06-01" {
		t.Errorf("Date = %q, want %q", sheet.Date, "2025-06-01")
	}
	if len(sheet.Entries) != 2 {
		t.Fatalf("entry count = %d, want 2", len(sheet.Entries))
	}
	// 開始時刻の昇順に並ぶ
	if sheet.Entries[0].Hours != 2.0 {
		t.Errorf("entries[0].Hours = %v, want 2.0", sheet.Entries[0].Hours)
	}
	if sheet.Entries[1].Hours != 1.0 {
		t.Errorf("entries[1].Hours = %v, want 1.0", sheet.Entries[1].Hours)
	}
	if sheet.TotalHours != 3.0 {
		t.Errorf("TotalHours = %v, want 3.0", sheet.TotalHours)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
