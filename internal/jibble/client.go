// Package jibble はJibble API連携機能を提供する。
// client_credentialsグラントによるトークン管理、リソースAPIの呼び出し、
// 進行中打刻セッションの解決を含む。
package jibble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hitoshi/dakoku/internal/model"
)

// TokenSource はアクセストークンの取得と無効化のインターフェース。
// TokenManagerが実装する。
type TokenSource interface {
	// GetValidToken は有効なアクセストークンを返す。
	GetValidToken(ctx context.Context) (string, error)
	// Invalidate はキャッシュされた資格情報をクリアする。
	Invalidate()
}

// MetricsRecorder は上流API呼び出しのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordUpstreamRequest(operation string, statusCode int)
	RecordUpstreamLatency(operation string, duration time.Duration)
	RecordTokenInvalidation()
}

// Client はJibbleリソースAPIのクライアント。
// 全リクエストにBearerトークンを付与し、401/403受信時には
// トークンの無効化を副作用として実行する（次回リクエストで自己回復する）。
//
// Jibbleのエンドポイントパスは安定した契約ではないため、操作ごとに
// 候補パスのリストを順に試行し、最初に404以外を返したパスを記憶する。
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	metrics    MetricsRecorder // nil可
	baseURL    string

	mu       sync.Mutex
	resolved map[string]string // 操作名 → 解決済みパス
}

// NewClient はClientを生成する。metricsはnilでもよい。
func NewClient(httpClient *http.Client, tokens TokenSource, logger *slog.Logger, metrics MetricsRecorder, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
		metrics:    metrics,
		baseURL:    baseURL,
		resolved:   make(map[string]string),
	}
}

// request は1つのAPI操作の呼び出し内容を表す。
// candidatesには試行順の候補パスを列挙する。
type request struct {
	operation  string
	method     string
	candidates []string
	query      url.Values
	body       any
}

// do はリクエストを実行しレスポンスボディを返す。
// 候補パスを順に試行し、404は次の候補へのフォールバックとして扱う。
// 401/403はトークン無効化の副作用を伴う認証エラーとして返す。
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	paths := req.candidates
	if p, ok := c.resolvedPath(req.operation); ok {
		paths = []string{p}
	}

	var lastErr error
	for _, path := range paths {
		body, status, err := c.execute(ctx, req, path)
		if err != nil {
			return nil, err
		}

		switch {
		case status >= 200 && status < 300:
			c.rememberPath(req.operation, path)
			return body, nil

		case status == http.StatusNotFound:
			// パス未解決とみなし次の候補を試す
			lastErr = model.NewUpstreamError(fmt.Sprintf("%s: status 404", path))
			continue

		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			// キャッシュ済みトークンをクリアし、次のリクエストで再取得させる。
			// このリクエスト自体は失敗のまま呼び出し元に返す。
			c.tokens.Invalidate()
			if c.metrics != nil {
				c.metrics.RecordTokenInvalidation()
			}
			c.logger.Warn("認証エラーを受信したため資格情報を無効化しました",
				slog.String("operation", req.operation),
				slog.Int("http_status", status),
			)
			return nil, model.NewAuthError(fmt.Sprintf("status %d: %s", status, string(body)))

		default:
			return nil, model.NewUpstreamError(fmt.Sprintf("status %d: %s", status, string(body)))
		}
	}

	if lastErr == nil {
		lastErr = model.NewUpstreamError("no candidate endpoint succeeded")
	}
	return nil, lastErr
}

// execute は単一パスへのHTTPリクエストを実行する。
func (c *Client) execute(ctx context.Context, req request, path string) ([]byte, int, error) {
	token, err := c.tokens.GetValidToken(ctx)
	if err != nil {
		return nil, 0, err
	}

	reqURL := c.baseURL + path
	if len(req.query) > 0 {
		reqURL += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to serialize request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, reqURL, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Jibble APIの呼び出しに失敗しました",
			slog.String("operation", req.operation),
			slog.String("error", err.Error()),
		)
		return nil, 0, model.NewUpstreamError(err.Error())
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(req.operation, resp.StatusCode)
		c.metrics.RecordUpstreamLatency(req.operation, time.Since(start))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, model.NewUpstreamError(fmt.Sprintf("failed to read response: %s", err.Error()))
	}

	return body, resp.StatusCode, nil
}

// resolvedPath は操作の解決済みパスを返す。
func (c *Client) resolvedPath(operation string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.resolved[operation]
	return p, ok
}

// rememberPath は操作の解決済みパスを記憶する。
func (c *Client) rememberPath(operation string, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.resolved[operation]; !ok {
		c.resolved[operation] = path
	}
}

// decodeCollection はJibbleのコレクションレスポンスをデコードする。
// {"value": [...]} 形式と素の配列形式の両方を受け付ける。
func decodeCollection(body []byte, out any) error {
	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Value != nil {
		if err := json.Unmarshal(envelope.Value, out); err != nil {
			return model.NewUpstreamError(fmt.Sprintf("invalid collection payload: %s", err.Error()))
		}
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return model.NewUpstreamError(fmt.Sprintf("invalid collection payload: %s", err.Error()))
	}
	return nil
}
