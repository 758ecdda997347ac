// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// チャットボット側に表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, timeclock, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeNotRegistered         = "NOT_REGISTERED"
	ErrCodeDuplicateRegistration = "DUPLICATE_REGISTRATION"
	ErrCodeRegistrationNotFound  = "REGISTRATION_NOT_FOUND"
	ErrCodeAuthFailed            = "AUTH_FAILED"
	ErrCodeUpstreamFailed        = "UPSTREAM_FAILED"
	ErrCodeNoActiveSession       = "NO_ACTIVE_SESSION"
)

// NewValidationError は必須フィールド欠落などの入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "必須フィールドを確認して再度お試しください。",
	}
}

// NewNotRegisteredError は未登録ユーザーに対する打刻操作エラーを生成する。
func NewNotRegisteredError(externalUserID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotRegistered,
		Message:  fmt.Sprintf("ユーザーが登録されていないか、Jibbleの人物レコードに紐付いていません: %s", externalUserID),
		Category: "validation",
		Action:   "先にregisterコマンドでユーザー登録を行ってください。",
	}
}

// NewDuplicateRegistrationError は同一ユーザーの二重登録エラーを生成する。
func NewDuplicateRegistrationError(externalUserID string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateRegistration,
		Message:  fmt.Sprintf("このユーザーは既に登録されています: %s", externalUserID),
		Category: "validation",
		Action:   "登録済みの情報を変更する場合は一度登録解除してください。",
	}
}

// NewRegistrationNotFoundError は登録が見つからない場合のエラーを生成する。
func NewRegistrationNotFoundError(externalUserID string) *APIError {
	return &APIError{
		Code:     ErrCodeRegistrationNotFound,
		Message:  fmt.Sprintf("指定されたユーザーの登録が見つかりません: %s", externalUserID),
		Category: "validation",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewAuthError はアクセストークン取得失敗のエラーを生成する。
// detailにはトークンエンドポイントのエラーペイロードを含める。
func NewAuthError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  fmt.Sprintf("Jibbleの認証に失敗しました: %s", detail),
		Category: "auth",
		Action:   "クライアントID/シークレットの設定を確認してください。",
	}
}

// NewUpstreamError は認証以外のJibble API呼び出し失敗のエラーを生成する。
func NewUpstreamError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailed,
		Message:  fmt.Sprintf("Jibble APIの呼び出しに失敗しました: %s", detail),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNoActiveSessionError は進行中の打刻がない状態でのクロックアウトエラーを生成する。
func NewNoActiveSessionError(externalUserID string) *APIError {
	return &APIError{
		Code:     ErrCodeNoActiveSession,
		Message:  fmt.Sprintf("進行中の打刻が見つかりません: %s", externalUserID),
		Category: "timeclock",
		Action:   "先にclockinコマンドで打刻を開始してください。",
	}
}
