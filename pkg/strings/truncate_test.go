package strings

import "testing"

func TestTruncateValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world this is a long string", 15, "hello world ..."},
		{"newlines replaced with spaces", "hello\nworld", 20, "hello world"},
		{"multiple spaces collapsed", "hello    world", 20, "hello world"},
		{"leading and trailing whitespace trimmed", "  hello world  ", 20, "hello world"},
		{"unicode truncation safe", "日本語テスト文字列", 6, "日本語..."},
		{"empty string", "", 10, ""},
		{"maxLen below minimum clamped", "hello", 2, "h..."},
		{"negative maxLen clamped", "hello", -5, "h..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateValue(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("TruncateValue(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestTruncateValueRuneLength(t *testing.T) {
	input := "日本語テスト"
	result := TruncateValue(input, 5)
	if result != "日本..." {
		t.Errorf("expected 日本... but got %q", result)
	}
}
