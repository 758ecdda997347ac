// Package model はドメインモデルを定義する。
package model

import "time"

// Registration はチャットプラットフォームのユーザーとJibbleの人物レコードの紐付けを表す。
// ExternalUserIDはチャット側のユーザーID（一意）、PersonID/PersonEmailはJibble側の識別情報。
// 人物解決に失敗した登録はPersonIDがnilのまま保存される（打刻時にエラーとなる）。
type Registration struct {
	ID             string    `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	DisplayName    string    `json:"display_name"`
	PersonID       *string   `json:"person_id,omitempty"`
	PersonEmail    *string   `json:"person_email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Project はJibbleのプロジェクトを表す。ローカルストアにキャッシュされる。
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TeamMember はJibbleのチームメンバーを表す。ローカルストアにキャッシュされる。
type TeamMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
