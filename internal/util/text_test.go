package util

import "testing"

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain utf8",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "contains null byte",
			input: "hel\x00lo",
			want:  "hello",
		},
		{
			name:  "contains invalid utf8",
			input: string([]byte{'a', 0xff, 'b'}),
			want:  "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeText(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected sanitized value: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{
			name:  "short string untouched",
			input: "hello",
			max:   10,
			want:  "hello",
		},
		{
			name:  "exact length untouched",
			input: "hello",
			max:   5,
			want:  "hello",
		},
		{
			name:  "long string truncated",
			input: "hello world",
			max:   5,
			want:  "hello...",
		},
		{
			name:  "multibyte rune boundary respected",
			input: "안녕하세요",
			max:   4,
			want:  "안...",
		},
		{
			name:  "zero max untouched",
			input: "hello",
			max:   0,
			want:  "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateForLog(tt.input, tt.max)
			if got != tt.want {
				t.Fatalf("unexpected truncated value: got %q, want %q", got, tt.want)
			}
		})
	}
}
