package jibble

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/dakoku/internal/model"
	"github.com/hitoshi/dakoku/internal/repository"
)

// TokenManagerConfig はトークンマネージャーの設定。
type TokenManagerConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string

	// TTLMargin はトークンの保持期間。Jibble側の実際の有効期限（60分）より
	// 意図的に短く設定し、期限境界での競合を避ける。
	TTLMargin time.Duration
}

// TokenManager はJibbleアクセストークンのライフサイクルを管理する。
// client_credentialsグラントによる取得、メモリキャッシュ、
// ウォームリスタート用の永続化、認証失敗時の無効化を担う。
//
// 取得経路全体をミューテックスで保護しているため、期限切れ直後に
// 複数リクエストが競合しても上位への取得リクエストは1回に合流する。
type TokenManager struct {
	httpClient *http.Client
	credRepo   repository.CredentialRepository
	logger     *slog.Logger
	config     TokenManagerConfig
	now        func() time.Time // テスト用に差し替え可能

	mu      sync.Mutex
	cred    *model.Credential
	adopted bool // 永続化済み資格情報の読み込みを試行済みか
}

// NewTokenManager はTokenManagerを生成する。
// TTLMarginが0以下の場合はデフォルト値50分を使用する。
func NewTokenManager(
	httpClient *http.Client,
	credRepo repository.CredentialRepository,
	logger *slog.Logger,
	config TokenManagerConfig,
) *TokenManager {
	if config.TTLMargin <= 0 {
		config.TTLMargin = 50 * time.Minute
	}
	return &TokenManager{
		httpClient: httpClient,
		credRepo:   credRepo,
		logger:     logger,
		config:     config,
		now:        time.Now,
	}
}

// tokenResponse はトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// GetValidToken は有効なアクセストークンを返す。
// メモリ上の資格情報が有効な場合はI/Oなしで即座に返す。
// 初回呼び出し時は永続化済み資格情報の採用を試み、期限内であれば
// ネットワーク往復なしで再利用する。いずれも無効な場合は
// client_credentials交換でトークンを新規取得し、メモリと永続ストアの
// 両方に保存する。取得失敗はキャッシュしない。
func (m *TokenManager) GetValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 起動後の初回のみ、永続化済み資格情報を採用する
	if !m.adopted {
		m.adopted = true
		m.adoptPersisted(ctx)
	}

	if m.cred.IsValid(m.now()) {
		return m.cred.AccessToken, nil
	}

	cred, err := m.acquire(ctx)
	if err != nil {
		return "", err
	}

	m.cred = cred

	// 永続化失敗はウォームリスタートが効かなくなるだけなので、警告に留める
	if err := m.credRepo.Save(ctx, cred); err != nil {
		m.logger.Warn("資格情報の永続化に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	return cred.AccessToken, nil
}

// Invalidate はメモリ上の資格情報をクリアする。
// 次回のGetValidToken呼び出しで再取得がトリガーされる。
// 永続化済みのコピーはクリアしない。
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = nil
}

// adoptPersisted は永続化済み資格情報の読み込みを試みる。
// ロック取得済みの前提で呼び出す。読み込み失敗は取得経路にフォールバックする。
func (m *TokenManager) adoptPersisted(ctx context.Context) {
	cred, err := m.credRepo.Get(ctx)
	if err != nil {
		m.logger.Warn("永続化済み資格情報の読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}
	if cred.IsValid(m.now()) {
		m.logger.Info("永続化済み資格情報を採用しました",
			slog.Time("expires_at", cred.ExpiresAt),
		)
		m.cred = cred
	}
}

// acquire はclient_credentials交換でトークンを新規取得する。
func (m *TokenManager) acquire(ctx context.Context) (*model.Credential, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {m.config.ClientID},
		"client_secret": {m.config.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Error("トークンエンドポイントへの接続に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewAuthError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		m.logger.Error("トークンエンドポイントがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewAuthError(fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, model.NewAuthError(fmt.Sprintf("invalid token response: %s", err.Error()))
	}

	if tokenResp.AccessToken == "" {
		return nil, model.NewAuthError("empty access token in response")
	}

	now := m.now()
	cred := &model.Credential{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   now.Add(m.config.TTLMargin),
		LastUpdated: now,
	}

	m.logger.Info("アクセストークンを取得しました",
		slog.Time("expires_at", cred.ExpiresAt),
	)

	return cred, nil
}
