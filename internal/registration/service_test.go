package registration

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/dakoku/internal/jibble"
	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/repository"
	"github.com/hitoshi/dakoku/internal/security"
)

// --- モック定義 ---

type mockRegistrationRepo struct {
	findFn   func(ctx context.Context, externalUserID string) (*model.Registration, error)
	createFn func(ctx context.Context, reg *model.Registration) error
	deleteFn func(ctx context.Context, externalUserID string) error
	listFn   func(ctx context.Context) ([]*model.Registration, error)
}

func (m *mockRegistrationRepo) FindByExternalUserID(ctx context.Context, externalUserID string) (*model.Registration, error) {
	if m.findFn != nil {
		return m.findFn(ctx, externalUserID)
	}
	return nil, nil
}

func (m *mockRegistrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	if m.createFn != nil {
		return m.createFn(ctx, reg)
	}
	return nil
}

func (m *mockRegistrationRepo) List(ctx context.Context) ([]*model.Registration, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockRegistrationRepo) DeleteByExternalUserID(ctx context.Context, externalUserID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, externalUserID)
	}
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

type mockPeopleLister struct {
	people []jibble.Person
	err    error
}

func (m *mockPeopleLister) ListPeople(ctx context.Context) ([]jibble.Person, error) {
	return m.people, m.err
}

// --- Register テスト ---

func TestService_Register_Success(t *testing.T) {
	auditRepo := &mockAuditLogRepo{}
	var created *model.Registration
	regRepo := &mockRegistrationRepo{
		createFn: func(ctx context.Context, reg *model.Registration) error {
			created = reg
			return nil
		},
	}
	people := &mockPeopleLister{
		people: []jibble.Person{
			{ID: "person-1", FullName: "山田太郎", Email: "yamada@example.com"},
		},
	}

	svc := NewService(regRepo, auditRepo, people, security.NewNameSanitizer())

	reg, err := svc.Register(context.Background(), "user-1", "山田", "yamada@example.com")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if reg.ExternalUserID != "user-1" {
		t.Errorf("ExternalUserID = %q, want %q", reg.ExternalUserID, "user-1")
	}
	if reg.PersonID == nil || *reg.PersonID != "person-1" {
		t.Errorf("PersonID = %v, want person-1", reg.PersonID)
	}
	if created == nil {
		t.Fatal("Create was not called")
	}

	// 登録の監査レコードが残る
	if len(auditRepo.records) != 1 || auditRepo.records[0].Type != model.LogTypeRegistration {
		t.Errorf("audit records = %+v, want 1 registration record", auditRepo.records)
	}
}

func TestService_Register_EmailMatchIsCaseInsensitive(t *testing.T) {
	people := &mockPeopleLister{
		people: []jibble.Person{
			{ID: "person-1", Email: "Yamada@Example.com"},
		},
	}

	svc := NewService(&mockRegistrationRepo{}, &mockAuditLogRepo{}, people, security.NewNameSanitizer())

	reg, err := svc.Register(context.Background(), "user-1", "山田", "yamada@example.com")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.PersonID == nil || *reg.PersonID != "person-1" {
		t.Errorf("PersonID = %v, want person-1 (case-insensitive match)", reg.PersonID)
	}
}

func TestService_Register_PersonResolutionFailureIsBestEffort(t *testing.T) {
	people := &mockPeopleLister{err: model.NewUpstreamError("status 500")}

	svc := NewService(&mockRegistrationRepo{}, &mockAuditLogRepo{}, people, security.NewNameSanitizer())

	// 人物解決に失敗しても登録自体は成功する
	reg, err := svc.Register(context.Background(), "user-1", "山田", "yamada@example.com")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.PersonID != nil {
		t.Errorf("PersonID = %v, want nil", reg.PersonID)
	}
}

func TestService_Register_WithoutEmailSkipsResolution(t *testing.T) {
	people := &mockPeopleLister{err: model.NewUpstreamError("呼ばれないはず")}

	svc := NewService(&mockRegistrationRepo{}, &mockAuditLogRepo{}, people, security.NewNameSanitizer())

	reg, err := svc.Register(context.Background(), "user-1", "山田", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.PersonID != nil {
		t.Errorf("PersonID = %v, want nil", reg.PersonID)
	}
}

func TestService_Register_Validation(t *testing.T) {
	svc := NewService(&mockRegistrationRepo{}, &mockAuditLogRepo{}, &mockPeopleLister{}, security.NewNameSanitizer())

	tests := []struct {
		name     string
		userID   string
		dispName string
	}{
		{name: "user_idが空", userID: "", dispName: "山田"},
		{name: "nameが空", userID: "user-1", dispName: ""},
		{name: "nameがマークアップのみ", userID: "user-1", dispName: "<script>alert(1)</script>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.userID, tt.dispName, "")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}

func TestService_Register_SanitizesDisplayName(t *testing.T) {
	var created *model.Registration
	regRepo := &mockRegistrationRepo{
		createFn: func(ctx context.Context, reg *model.Registration) error {
			created = reg
			return nil
		},
	}

	svc := NewService(regRepo, &mockAuditLogRepo{}, &mockPeopleLister{}, security.NewNameSanitizer())

	if _, err := svc.Register(context.Background(), "user-1", "  山田<b>太郎</b>  ", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if created.DisplayName != "山田太郎" {
		t.Errorf("DisplayName = %q, want %q", created.DisplayName, "山田太郎")
	}
}

func TestService_Register_Duplicate(t *testing.T) {
	regRepo := &mockRegistrationRepo{
		findFn: func(ctx context.Context, externalUserID string) (*model.Registration, error) {
			return &model.Registration{ID: "reg-1", ExternalUserID: externalUserID}, nil
		},
	}

	svc := NewService(regRepo, &mockAuditLogRepo{}, &mockPeopleLister{}, security.NewNameSanitizer())

	_, err := svc.Register(context.Background(), "user-1", "山田", "")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateRegistration {
		t.Errorf("error = %v, want DuplicateRegistrationError", err)
	}
}

// --- Unregister テスト ---

func TestService_Unregister_Success(t *testing.T) {
	deleted := false
	regRepo := &mockRegistrationRepo{
		findFn: func(ctx context.Context, externalUserID string) (*model.Registration, error) {
			return &model.Registration{ID: "reg-1", ExternalUserID: externalUserID}, nil
		},
		deleteFn: func(ctx context.Context, externalUserID string) error {
			deleted = true
			return nil
		},
	}

	svc := NewService(regRepo, &mockAuditLogRepo{}, &mockPeopleLister{}, security.NewNameSanitizer())

	if err := svc.Unregister(context.Background(), "user-1"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if !deleted {
		t.Error("DeleteByExternalUserID was not called")
	}
}

func TestService_Unregister_NotFound(t *testing.T) {
	svc := NewService(&mockRegistrationRepo{}, &mockAuditLogRepo{}, &mockPeopleLister{}, security.NewNameSanitizer())

	err := svc.Unregister(context.Background(), "no-such-user")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeRegistrationNotFound {
		t.Errorf("error = %v, want RegistrationNotFoundError", err)
	}
}
