// Package model はドメインモデルを定義する。
package model

import "time"

// LogType は監査ログレコードの種別を表す。
type LogType string

const (
	// LogTypeRegistration はユーザー登録の監査レコード。
	LogTypeRegistration LogType = "registration"
	// LogTypeClockIn はクロックイン成功の監査レコード。
	LogTypeClockIn LogType = "clockin"
	// LogTypeClockInError はクロックイン失敗の監査レコード。
	LogTypeClockInError LogType = "clockin_error"
	// LogTypeClockOut はクロックアウト成功の監査レコード。
	LogTypeClockOut LogType = "clockout"
	// LogTypeClockOutError はクロックアウト失敗の監査レコード。
	LogTypeClockOutError LogType = "clockout_error"
)

// LogRecord は監査ログの1レコードを表す。追記専用で、更新・削除されない。
// UpstreamResponseにはJibble APIのレスポンス本文を必要に応じて保持する。
type LogRecord struct {
	ID               string    `json:"id"`
	Type             LogType   `json:"type"`
	ExternalUserID   string    `json:"external_user_id"`
	Details          string    `json:"details"`
	Timestamp        time.Time `json:"timestamp"`
	UpstreamResponse string    `json:"upstream_response,omitempty"`
}
