// Package budget estimates whether an assembled prompt fits a model's context
// window. Estimates are heuristic; the byte budget on evidence is the hard
// limit and this package only drives warnings.
package budget

import "strings"

// DefaultContextTokens is assumed for models missing from the table.
const DefaultContextTokens = 8192

// DefaultReservedOutput is the completion reservation used when callers do
// not specify one.
const DefaultReservedOutput = 4096

// EstimateTokens returns a conservative token estimate for s at roughly four
// bytes per token, rounded up.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// ModelContextTokens returns the context window for a model name. Matching is
// case-insensitive, first on the exact name and then on the longest known
// prefix, so dated snapshots such as "gpt-4o-2024-08-06" resolve.
func ModelContextTokens(model string) int {
	name := strings.ToLower(strings.TrimSpace(model))
	if name == "" {
		return DefaultContextTokens
	}
	if v, ok := knownModels[name]; ok {
		return v
	}
	best, bestLen := 0, 0
	for prefix, v := range knownModels {
		if strings.HasPrefix(name, prefix) && len(prefix) > bestLen {
			best, bestLen = v, len(prefix)
		}
	}
	if bestLen > 0 {
		return best
	}
	switch {
	case strings.HasSuffix(name, "1m"):
		return 1_000_000
	case strings.HasSuffix(name, "200k"):
		return 200_000
	case strings.HasSuffix(name, "128k"):
		return 128_000
	case strings.HasSuffix(name, "32k"):
		return 32_768
	}
	return DefaultContextTokens
}

// HeadroomTokens is the larger of 5% of the model context or 512 tokens,
// covering tokenizer drift and message framing.
func HeadroomTokens(model string) int {
	dyn := (ModelContextTokens(model)*5 + 99) / 100
	if dyn < 512 {
		return 512
	}
	return dyn
}

// Check is the outcome of sizing one prompt against a model.
type Check struct {
	Model          string
	PromptTokens   int
	ContextTokens  int
	ReservedOutput int
	Headroom       int
}

// Remaining is the input budget left after the prompt, reservation and
// headroom. Negative values mean overflow.
func (c Check) Remaining() int {
	return c.ContextTokens - c.ReservedOutput - c.Headroom - c.PromptTokens
}

// Fits reports whether the prompt fits.
func (c Check) Fits() bool { return c.Remaining() >= 0 }

// CheckPrompt sizes prompt for model. reservedOutput <= 0 uses
// DefaultReservedOutput.
func CheckPrompt(model, prompt string, reservedOutput int) Check {
	if reservedOutput <= 0 {
		reservedOutput = DefaultReservedOutput
	}
	return Check{
		Model:          model,
		PromptTokens:   EstimateTokens(prompt),
		ContextTokens:  ModelContextTokens(model),
		ReservedOutput: reservedOutput,
		Headroom:       HeadroomTokens(model),
	}
}

var knownModels = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-4.1":       1_047_576,
	"gpt-4":         8_192,
	"gpt-3.5-turbo": 16_385,
	"o1":            200_000,
	"o3-mini":       200_000,
}
