package ai

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBudget_MaxPromptChars(t *testing.T) {
	tests := []struct {
		name   string
		budget Budget
		lang   Language
		want   int
	}{
		{
			name:   "defaults latin",
			budget: Budget{},
			lang:   LanguageLatin,
			want:   21672, // (8192 - 2000) * 3.5
		},
		{
			name:   "defaults cjk",
			budget: Budget{},
			lang:   LanguageCJK,
			want:   9288, // (8192 - 2000) * 1.5
		},
		{
			name:   "explicit window",
			budget: Budget{ContextTokens: 1000, ReservedTokens: 700},
			lang:   LanguageLatin,
			want:   1050,
		},
		{
			name:   "reservation swallows context",
			budget: Budget{ContextTokens: 300, ReservedTokens: 290},
			lang:   LanguageLatin,
			want:   896, // floored at 256 input tokens
		},
		{
			name:   "custom ratio",
			budget: Budget{ContextTokens: 1256, ReservedTokens: 1000, CharsPerToken: 2},
			lang:   LanguageLatin,
			want:   512,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.budget.MaxPromptChars(tt.lang); got != tt.want {
				t.Fatalf("MaxPromptChars(%s) = %d, want %d", tt.lang, got, tt.want)
			}
		})
	}
}

func TestBudget_Fit(t *testing.T) {
	b := Budget{ContextTokens: 1000, ReservedTokens: 700}

	short := "short prompt"
	if got, truncated := b.Fit(short); truncated || got != short {
		t.Fatalf("Fit(short) = %q, %v", got, truncated)
	}

	long := strings.Repeat("a", 2000)
	got, truncated := b.Fit(long)
	if !truncated {
		t.Fatal("Fit(long) did not truncate")
	}
	if len(got) != 1050 {
		t.Fatalf("Fit(long) kept %d chars, want 1050", len(got))
	}
	if !strings.HasPrefix(long, got) {
		t.Fatal("Fit(long) is not a prefix of the input")
	}
}

func TestBudget_FitCJKRuneBoundary(t *testing.T) {
	// 256 input tokens at the CJK ratio is a 384 rune allowance.
	b := Budget{ContextTokens: 2256, ReservedTokens: 2000}

	long := strings.Repeat("한", 400)
	got, truncated := b.Fit(long)
	if !truncated {
		t.Fatal("Fit() did not truncate")
	}
	if n := utf8.RuneCountInString(got); n != 384 {
		t.Fatalf("Fit() kept %d runes, want 384", n)
	}
	if !utf8.ValidString(got) {
		t.Fatal("Fit() cut inside a rune")
	}
}

func TestCountTokens(t *testing.T) {
	short, err := CountTokens("hello")
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	if short == 0 {
		t.Fatal("CountTokens(hello) = 0")
	}

	long, err := CountTokens("hello world, this is a much longer sentence about document analysis")
	if err != nil {
		t.Fatalf("CountTokens() error = %v", err)
	}
	if long <= short {
		t.Fatalf("CountTokens() long = %d, short = %d", long, short)
	}

	empty, err := CountTokens("")
	if err != nil {
		t.Fatalf("CountTokens() error = %v", err)
	}
	if empty != 0 {
		t.Fatalf("CountTokens(empty) = %d", empty)
	}
}
