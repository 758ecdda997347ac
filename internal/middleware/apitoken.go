package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/hitoshi/dakoku/internal/model"
)

// NewAPITokenMiddleware は共有シークレットによるAPIトークン認証ミドルウェアを返す。
// リクエストのX-Api-Tokenヘッダーと設定値を比較する。
// expectedが空文字列の場合は認証を行わない（ローカル開発用）。
func NewAPITokenMiddleware(expected string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get("X-Api-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:     "UNAUTHORIZED",
					Message:  "APIトークンが一致しません。",
					Category: "auth",
					Action:   "X-Api-Tokenヘッダーを確認してください。",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
