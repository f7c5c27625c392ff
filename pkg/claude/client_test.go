package claude

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseTextJoinsBlocks(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "first"},
		{Type: "text", Text: ""},
		{Type: "text", Text: "second"},
	}}
	assert.Equal(t, "first\nsecond", resp.Text())

	assert.Empty(t, (&MessageResponse{}).Text())
}

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}

	cost := usage.EstimateCost("claude-sonnet-4-5-20250929")
	assert.InDelta(t, 18.0, cost, 1e-9)

	assert.Zero(t, usage.EstimateCost("unknown-model"))
}

func TestEstimateCostIncludesCacheTokens(t *testing.T) {
	usage := TokenUsage{
		CacheCreationInputTokens: 1_000_000,
		CacheReadInputTokens:     1_000_000,
	}
	// Cache writes bill at 1.25x input, cache reads at 0.1x.
	cost := usage.EstimateCost("claude-sonnet-4-5-20250929")
	assert.InDelta(t, 3.0*1.25+3.0*0.1, cost, 1e-9)
}
