package security

import "testing"

// TestNameSanitizer_Sanitize は表示名からマークアップが除去されることを検証する。
func TestNameSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewNameSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "平文はそのまま", input: "Alice", want: "Alice"},
		{name: "タグが除去される", input: "<b>Alice</b>", want: "Alice"},
		{name: "アンパサンドはエスケープされない", input: "Tom & Jerry", want: "Tom & Jerry"},
		{name: "scriptは内容ごと除去される", input: "<script>alert(1)</script>Bob", want: "Bob"},
		{name: "前後の空白を除去", input: "  山田 太郎  ", want: "山田 太郎"},
		{name: "属性付きタグ", input: `<a href="https://evil.example" onclick="x()">Carol</a>`, want: "Carol"},
		{name: "空文字列", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestNameSanitizer_Idempotent は同一入力に対して同一出力を返すことを検証する。
func TestNameSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewNameSanitizer()
	input := "<i>Dave</i> & co"

	first := sanitizer.Sanitize(input)
	if second := sanitizer.Sanitize(first); second != first {
		t.Errorf("second pass = %q, want %q", second, first)
	}
}
