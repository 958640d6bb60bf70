package conversation

import "github.com/go-go-golems/jarvis/pkg/tokens"

// Usage is the estimated token budget of a session.
type Usage struct {
	System    int `json:"system"`
	User      int `json:"user"`
	Assistant int `json:"assistant"`
	Total     int `json:"total"`
	// Remaining is Limit - Total and goes negative once the budget is exceeded.
	Remaining   int     `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
	Limit       int     `json:"limit"`

	// Reported is the last total the model server reported, 0 if it never did.
	Reported  int `json:"reported"`
	Exchanges int `json:"exchanges"`
}

func computeUsage(estimator tokens.Estimator, systemTokens int, limit int, turns Conversation) Usage {
	u := Usage{
		System:    systemTokens,
		Limit:     limit,
		Exchanges: turns.Exchanges(),
	}
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			u.User += estimator.Estimate(t.Content)
		case RoleAssistant:
			u.Assistant += estimator.Estimate(t.Content)
		case RoleSystem:
		}
	}
	u.Total = u.System + u.User + u.Assistant
	u.Remaining = limit - u.Total
	if limit > 0 {
		u.PercentUsed = float64(u.Total) / float64(limit) * 100
	}
	return u
}

const (
	DefaultTrimThreshold = 85.0
	DefaultTrimDivisor   = 5
)

// TrimPolicy evicts the oldest 1/Divisor of the turns once PercentUsed exceeds Threshold.
// Eviction is oldest-first and ignores content.
type TrimPolicy struct {
	Threshold float64
	Divisor   int
}

func DefaultTrimPolicy() TrimPolicy {
	return TrimPolicy{
		Threshold: DefaultTrimThreshold,
		Divisor:   DefaultTrimDivisor,
	}
}

func (p TrimPolicy) ShouldTrim(u Usage) bool {
	return u.PercentUsed > p.Threshold
}

// DropCount is the number of turns to evict from a history of n turns.
func (p TrimPolicy) DropCount(n int) int {
	if p.Divisor <= 0 {
		return 0
	}
	return n / p.Divisor
}
