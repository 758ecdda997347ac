// Package store はフラットなJSONファイルによるローカル永続化を提供する。
// 登録・監査ログ・プロジェクト/チームキャッシュ・アクセス資格情報を
// 単一のJSONドキュメントとして保持する。スキーマバージョニングは行わず、
// 欠損キーは読み込み時にデフォルト値で補完する。
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hitoshi/dakoku/internal/model"
)

// Document はストアファイルのトップレベル構造を表す。
type Document struct {
	Registrations []*model.Registration `json:"registrations"`
	Logs          []*model.LogRecord    `json:"logs"`
	Projects      []model.Project       `json:"projects"`
	Teams         []model.TeamMember    `json:"teams"`
	Credential    *model.Credential     `json:"credential,omitempty"`
}

// FileStore は単一JSONファイルへの読み書きを提供する。
// プロセス内の同時アクセスはミューテックスで直列化するが、
// プロセス間の排他制御は行わない（最後の書き込みが勝つ）。
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore はFileStoreを生成する。ファイルはまだ読み込まない。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load はストアファイルを読み込みDocumentを返す。
// ファイルが存在しない場合は空のDocumentを返す。
// 欠損しているコレクションは空スライスで補完する。
func (s *FileStore) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Ping はストアファイルが読み取り可能であることを確認する。
// ヘルスチェック用。ファイルが存在しない場合は正常とみなす。
func (s *FileStore) Ping() error {
	_, err := s.Load()
	return err
}

// Update は読み込み・変更・書き込みを1つのミューテックス区間で実行する。
// fnがエラーを返した場合は書き込みを行わない。
func (s *FileStore) Update(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	if err := fn(doc); err != nil {
		return err
	}

	return s.save(doc)
}

// load はロック取得済みの前提でファイルを読み込む。
func (s *FileStore) load() (*Document, error) {
	doc := &Document{}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.applyDefaults(doc)
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to parse store file: %w", err)
		}
	}

	s.applyDefaults(doc)
	return doc, nil
}

// save はロック取得済みの前提でDocumentをファイルに書き込む。
// 一時ファイルへ書き込んでからリネームすることで部分書き込みを防ぐ。
func (s *FileStore) save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize store document: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".dakoku-store-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	return nil
}

// applyDefaults は欠損しているコレクションを空スライスで補完する。
func (s *FileStore) applyDefaults(doc *Document) {
	if doc.Registrations == nil {
		doc.Registrations = []*model.Registration{}
	}
	if doc.Logs == nil {
		doc.Logs = []*model.LogRecord{}
	}
	if doc.Projects == nil {
		doc.Projects = []model.Project{}
	}
	if doc.Teams == nil {
		doc.Teams = []model.TeamMember{}
	}
}
