package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/store"
)

// FileRegistrationRepo はJSONファイルストアを使用した登録リポジトリ。
// 毎操作でファイルを読み直し、変更後に全体を書き戻す。
type FileRegistrationRepo struct {
	store *store.FileStore
}

// NewFileRegistrationRepo はFileRegistrationRepoを生成する。
func NewFileRegistrationRepo(s *store.FileStore) *FileRegistrationRepo {
	return &FileRegistrationRepo{store: s}
}

// FindByExternalUserID は指定チャットユーザーIDの登録を取得する。見つからない場合はnilを返す。
func (r *FileRegistrationRepo) FindByExternalUserID(ctx context.Context, externalUserID string) (*model.Registration, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}

	for _, reg := range doc.Registrations {
		if reg.ExternalUserID == externalUserID {
			return reg, nil
		}
	}
	return nil, nil
}

// Create は登録を作成する。同一ExternalUserIDの登録が既に存在する場合はエラーを返す。
func (r *FileRegistrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	err := r.store.Update(func(doc *store.Document) error {
		for _, existing := range doc.Registrations {
			if existing.ExternalUserID == reg.ExternalUserID {
				return model.NewDuplicateRegistrationError(reg.ExternalUserID)
			}
		}
		doc.Registrations = append(doc.Registrations, reg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

// List は全登録を作成日時の昇順で返す。
func (r *FileRegistrationRepo) List(ctx context.Context) ([]*model.Registration, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}

	regs := make([]*model.Registration, len(doc.Registrations))
	copy(regs, doc.Registrations)
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].CreatedAt.Before(regs[j].CreatedAt)
	})
	return regs, nil
}

// DeleteByExternalUserID は指定チャットユーザーIDの登録を削除する。
func (r *FileRegistrationRepo) DeleteByExternalUserID(ctx context.Context, externalUserID string) error {
	err := r.store.Update(func(doc *store.Document) error {
		kept := doc.Registrations[:0]
		for _, reg := range doc.Registrations {
			if reg.ExternalUserID != externalUserID {
				kept = append(kept, reg)
			}
		}
		doc.Registrations = kept
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return nil
}

// compile-time interface check
var _ RegistrationRepository = (*FileRegistrationRepo)(nil)
