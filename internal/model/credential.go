// Package model はドメインモデルを定義する。
package model

import "time"

// Credential はJibble APIのアクセス資格情報を表す。
// トークンマネージャーのみが所有・変更し、取得成功時にのみ更新される。
// 認証失敗（401/403）ではメモリ上のCredentialのみがクリアされる。
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// IsValid は指定時刻においてCredentialが有効かどうかを返す。
func (c *Credential) IsValid(now time.Time) bool {
	return c != nil && c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// TimeEntry はJibble側の打刻レコードを表す。このシステムからは読み取り専用。
// Endがnilのエントリは進行中（クロックイン中）のセッションを示す。
type TimeEntry struct {
	ID    string     `json:"id"`
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// IsOpen は終了時刻のない進行中エントリかどうかを返す。
func (e *TimeEntry) IsOpen() bool {
	return e.End == nil
}
