package budget

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.in); got != c.want {
			t.Fatalf("EstimateTokens(%d bytes) = %d, want %d", len(c.in), got, c.want)
		}
	}
}

func TestModelContextTokens(t *testing.T) {
	cases := map[string]int{
		"":                  DefaultContextTokens,
		"gpt-4o":            128_000,
		"GPT-4o":            128_000,
		"gpt-4o-2024-08-06": 128_000,
		"gpt-4-0613":        8_192,
		"gpt-4-turbo-2024":  128_000,
		"mystery-128k":      128_000,
		"mystery":           DefaultContextTokens,
	}
	for model, want := range cases {
		if got := ModelContextTokens(model); got != want {
			t.Errorf("ModelContextTokens(%q) = %d, want %d", model, got, want)
		}
	}
}

func TestHeadroomTokens(t *testing.T) {
	if got := HeadroomTokens("mystery"); got != 512 {
		t.Fatalf("small model headroom = %d, want 512", got)
	}
	if got := HeadroomTokens("gpt-4o"); got != 6400 {
		t.Fatalf("gpt-4o headroom = %d, want 6400", got)
	}
}

func TestCheckPrompt(t *testing.T) {
	small := CheckPrompt("gpt-4o", strings.Repeat("a", 4000), 0)
	if !small.Fits() {
		t.Fatalf("1000-token prompt should fit gpt-4o: %+v", small)
	}
	if small.ReservedOutput != DefaultReservedOutput {
		t.Fatalf("reserved = %d", small.ReservedOutput)
	}
	// Two 110,000-byte evidence arrays overflow an 8k model.
	big := CheckPrompt("gpt-4", strings.Repeat("a", 220_000), 1000)
	if big.Fits() || big.Remaining() >= 0 {
		t.Fatalf("expected overflow: %+v", big)
	}
}
