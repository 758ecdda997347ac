package app

import "testing"

// TestParseCommand はコマンドライン引数からのサブコマンド解析を検証する。
func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{name: "引数なしはserve", args: nil, want: CommandServe},
		{name: "serve指定", args: []string{"serve"}, want: CommandServe},
		{name: "refresh指定", args: []string{"refresh"}, want: CommandRefresh},
		{name: "healthcheck指定", args: []string{"healthcheck"}, want: CommandHealthcheck},
		{name: "未知のコマンドはserveにフォールバック", args: []string{"unknown"}, want: CommandServe},
		{name: "2番目以降の引数は無視される", args: []string{"refresh", "extra"}, want: CommandRefresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommand(tt.args)
			if got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
