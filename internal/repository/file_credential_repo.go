package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/store"
)

// FileCredentialRepo はJSONファイルストアを使用した資格情報リポジトリ。
// プロセス再起動をまたいだトークン再利用のために資格情報を保持する。
type FileCredentialRepo struct {
	store *store.FileStore
}

// NewFileCredentialRepo はFileCredentialRepoを生成する。
func NewFileCredentialRepo(s *store.FileStore) *FileCredentialRepo {
	return &FileCredentialRepo{store: s}
}

// Get は永続化された資格情報を取得する。存在しない場合はnilを返す。
func (r *FileCredentialRepo) Get(ctx context.Context) (*model.Credential, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return doc.Credential, nil
}

// Save は資格情報を永続化する。既存の資格情報は上書きされる。
func (r *FileCredentialRepo) Save(ctx context.Context, cred *model.Credential) error {
	err := r.store.Update(func(doc *store.Document) error {
		doc.Credential = cred
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CredentialRepository = (*FileCredentialRepo)(nil)
