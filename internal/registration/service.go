// Package registration はチャットユーザーとJibble人物レコードの紐付け管理を提供する。
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/dakoku/internal/jibble"
	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/repository"
	"github.com/hitoshi/dakoku/internal/security"
)

// PeopleLister はJibbleの人物一覧取得のインターフェース。jibble.Clientが実装する。
type PeopleLister interface {
	ListPeople(ctx context.Context) ([]jibble.Person, error)
}

// Service はユーザー登録に関するビジネスロジックを提供する。
type Service struct {
	regRepo   repository.RegistrationRepository
	auditRepo repository.AuditLogRepository
	people    PeopleLister
	sanitizer security.NameSanitizerService
}

// NewService はServiceを生成する。
func NewService(
	regRepo repository.RegistrationRepository,
	auditRepo repository.AuditLogRepository,
	people PeopleLister,
	sanitizer security.NameSanitizerService,
) *Service {
	return &Service{
		regRepo:   regRepo,
		auditRepo: auditRepo,
		people:    people,
		sanitizer: sanitizer,
	}
}

// Register はチャットユーザーを登録する。
// ExternalUserIDの一意性を検証し、メールアドレスが指定されていれば
// Jibbleの人物レコードへの解決を試みる。解決に失敗しても登録自体は
// 成功させる（PersonIDがnilのままとなり、打刻時にエラーとなる）。
// 成功時にはregistration種別の監査レコードを追記する。
func (s *Service) Register(ctx context.Context, externalUserID, displayName, email string) (*model.Registration, error) {
	if externalUserID == "" {
		return nil, model.NewValidationError("user_idは必須です")
	}

	displayName = s.sanitizer.Sanitize(displayName)
	if displayName == "" {
		return nil, model.NewValidationError("nameは必須です")
	}

	// 一意性チェック（ファイル書き込み時にも再検証される）
	existing, err := s.regRepo.FindByExternalUserID(ctx, externalUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateRegistrationError(externalUserID)
	}

	now := time.Now()
	reg := &model.Registration{
		ID:             uuid.New().String(),
		ExternalUserID: externalUserID,
		DisplayName:    displayName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if email != "" {
		s.resolvePerson(ctx, reg, email)
	}

	if err := s.regRepo.Create(ctx, reg); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, externalUserID, fmt.Sprintf("ユーザー登録: %s", displayName))

	slog.Info("user registered",
		slog.String("external_user_id", externalUserID),
		slog.Bool("person_resolved", reg.PersonID != nil),
	)

	return reg, nil
}

// Unregister は登録を削除する。登録が存在しない場合はエラーを返す。
func (s *Service) Unregister(ctx context.Context, externalUserID string) error {
	if externalUserID == "" {
		return model.NewValidationError("user_idは必須です")
	}

	existing, err := s.regRepo.FindByExternalUserID(ctx, externalUserID)
	if err != nil {
		return fmt.Errorf("failed to find registration: %w", err)
	}
	if existing == nil {
		return model.NewRegistrationNotFoundError(externalUserID)
	}

	if err := s.regRepo.DeleteByExternalUserID(ctx, externalUserID); err != nil {
		return err
	}

	slog.Info("user unregistered", slog.String("external_user_id", externalUserID))
	return nil
}

// Get は指定チャットユーザーIDの登録を取得する。見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, externalUserID string) (*model.Registration, error) {
	return s.regRepo.FindByExternalUserID(ctx, externalUserID)
}

// List は全登録を返す。
func (s *Service) List(ctx context.Context) ([]*model.Registration, error) {
	return s.regRepo.List(ctx)
}

// resolvePerson はメールアドレスでJibbleの人物レコードを検索し、
// 見つかればregに紐付ける。解決失敗は警告ログのみ（ベストエフォート）。
func (s *Service) resolvePerson(ctx context.Context, reg *model.Registration, email string) {
	people, err := s.people.ListPeople(ctx)
	if err != nil {
		slog.Warn("人物一覧の取得に失敗したため紐付けをスキップします",
			slog.String("external_user_id", reg.ExternalUserID),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, p := range people {
		if strings.EqualFold(p.Email, email) {
			personID := p.ID
			personEmail := p.Email
			reg.PersonID = &personID
			reg.PersonEmail = &personEmail
			return
		}
	}

	slog.Warn("メールアドレスに一致する人物が見つかりませんでした",
		slog.String("external_user_id", reg.ExternalUserID),
	)
}

// appendAudit は監査レコードを追記する。追記失敗は警告ログのみ。
func (s *Service) appendAudit(ctx context.Context, externalUserID, details string) {
	rec := &model.LogRecord{
		ID:             uuid.New().String(),
		Type:           model.LogTypeRegistration,
		ExternalUserID: externalUserID,
		Details:        details,
		Timestamp:      time.Now(),
	}
	if err := s.auditRepo.Append(ctx, rec); err != nil {
		slog.Warn("監査レコードの追記に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
