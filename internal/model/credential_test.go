package model

import (
	"errors"
	"testing"
	"time"
)

// TestCredential_IsValid はCredentialの有効性判定を検証する。
func TestCredential_IsValid(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cred *Credential
		want bool
	}{
		{
			name: "有効期限内のトークンは有効",
			cred: &Credential{AccessToken: "token", ExpiresAt: now.Add(10 * time.Minute)},
			want: true,
		},
		{
			name: "期限切れのトークンは無効",
			cred: &Credential{AccessToken: "token", ExpiresAt: now.Add(-time.Minute)},
			want: false,
		},
		{
			name: "空トークンは無効",
			cred: &Credential{AccessToken: "", ExpiresAt: now.Add(10 * time.Minute)},
			want: false,
		},
		{
			name: "nilレシーバーは無効",
			cred: nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.IsValid(now); got != tt.want {
				t.Errorf("IsValid = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestAPIError_ErrorFormat はAPIErrorのエラーメッセージ形式を検証する。
func TestAPIError_ErrorFormat(t *testing.T) {
	err := NewNoActiveSessionError("cliq-1")

	want := "[" + ErrCodeNoActiveSession + "] "
	if got := err.Error(); len(got) < len(want) || got[:len(want)] != want {
		t.Errorf("Error() = %q, want prefix %q", got, want)
	}
}

// TestAPIError_ErrorsAs はラップされたAPIErrorをerrors.Asで取り出せることを検証する。
func TestAPIError_ErrorsAs(t *testing.T) {
	var wrapped error = NewDuplicateRegistrationError("cliq-1")

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As failed to extract *APIError")
	}
	if apiErr.Code != ErrCodeDuplicateRegistration {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeDuplicateRegistration)
	}
}
