package assistant

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-go-golems/jarvis/pkg/conversation"
	"github.com/stretchr/testify/assert"
)

func TestRemainingMinutes(t *testing.T) {
	assert.Equal(t, 160, RemainingMinutes(conversation.Usage{Total: 500, Remaining: 31500}, 0))

	// 4 turns = 2 exchanges at 1,000 tokens each, 30,000 left = 30 exchanges
	assert.Equal(t, 15, RemainingMinutes(conversation.Usage{Total: 2000, Remaining: 30000}, 4))

	assert.Equal(t, 0, RemainingMinutes(conversation.Usage{Total: 40000, Remaining: -8000}, 2))
}

func TestTokenBar(t *testing.T) {
	tests := []struct {
		name    string
		usage   conversation.Usage
		filled  int
		summary string
	}{
		{"empty", conversation.Usage{Total: 0, Limit: 32000, Remaining: 32000}, 0, "0/32,000 (0.0%) • ~160 min remaining"},
		{"half", conversation.Usage{Total: 16000, Limit: 32000, Remaining: 16000, PercentUsed: 50}, 15, "16,000/32,000 (50.0%)"},
		{"over", conversation.Usage{Total: 40000, Limit: 32000, Remaining: -8000, PercentUsed: 125}, 30, "40,000/32,000 (125.0%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			turns := 0
			if tt.usage.Total > 0 {
				turns = 2
			}
			NewConsole(out).TokenBar(tt.usage, turns)

			line := out.String()
			assert.Contains(t, line, "Tokens:")
			assert.Equal(t, tt.filled, strings.Count(line, "█"))
			assert.Equal(t, barWidth-tt.filled, strings.Count(line, "░"))
			assert.Contains(t, line, tt.summary)
		})
	}
}

func TestStatusPanel(t *testing.T) {
	out := &bytes.Buffer{}
	NewConsole(out).StatusPanel(conversation.Usage{
		System:    310,
		User:      1200,
		Assistant: 2400,
		Total:     3910,
		Remaining: 28090,
		Limit:     32000,
		Exchanges: 6,
		Reported:  4102,
	}, "Yennefer")

	panel := out.String()
	for _, expected := range []string{
		"Memory Status",
		"System prompt: 310 tokens",
		"Your messages: 1,200 tokens",
		"Yennefer responses: 2,400 tokens",
		"Total used: 3,910 / 32,000",
		"Remaining: 28,090 tokens",
		"Exchanges: 6",
		"Last reported: 4,102 tokens",
	} {
		assert.Contains(t, panel, expected)
	}
}
