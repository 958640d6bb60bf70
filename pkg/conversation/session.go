package conversation

import (
	"context"
	"time"

	"github.com/go-go-golems/jarvis/pkg/llm"
	"github.com/go-go-golems/jarvis/pkg/reasoning"
	"github.com/go-go-golems/jarvis/pkg/tokens"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ApologyText is the reply returned when the model server could not produce one.
const ApologyText = "Something went wrong. Try again, and do be more careful this time."

const DefaultContextLimit = 32000

// Session tracks one conversation. It is not safe for concurrent use.
type Session struct {
	ID uuid.UUID

	completer    llm.Completer
	systemPrompt string
	systemTokens int
	contextLimit int
	estimator    tokens.Estimator
	policy       TrimPolicy

	turns          Conversation
	reportedTokens int
	lastErr        error
	lastTrimmed    int

	logger zerolog.Logger
}

type SessionOption func(*Session)

func WithSystemPrompt(prompt string) SessionOption {
	return func(s *Session) {
		s.systemPrompt = prompt
	}
}

func WithContextLimit(limit int) SessionOption {
	return func(s *Session) {
		s.contextLimit = limit
	}
}

func WithEstimator(estimator tokens.Estimator) SessionOption {
	return func(s *Session) {
		if estimator != nil {
			s.estimator = estimator
		}
	}
}

func WithTrimPolicy(policy TrimPolicy) SessionOption {
	return func(s *Session) {
		s.policy = policy
	}
}

func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithSessionID(id uuid.UUID) SessionOption {
	return func(s *Session) {
		s.ID = id
	}
}

func NewSession(completer llm.Completer, options ...SessionOption) (*Session, error) {
	if completer == nil {
		return nil, errors.New("session needs a completer")
	}

	ret := &Session{
		ID:           uuid.Nil,
		completer:    completer,
		contextLimit: DefaultContextLimit,
		estimator:    tokens.HeuristicEstimator{},
		policy:       DefaultTrimPolicy(),
		logger:       log.Logger,
	}
	for _, option := range options {
		option(ret)
	}

	if ret.contextLimit <= 0 {
		return nil, errors.Errorf("context limit must be positive, got %d", ret.contextLimit)
	}
	if ret.policy.Divisor <= 0 {
		return nil, errors.Errorf("trim divisor must be positive, got %d", ret.policy.Divisor)
	}
	if ret.ID == uuid.Nil {
		ret.ID = uuid.New()
	}

	ret.systemTokens = ret.estimator.Estimate(ret.systemPrompt)
	ret.logger = ret.logger.With().Str("session_id", ret.ID.String()).Logger()

	return ret, nil
}

// Submit records userText as a turn, asks the model for a reply and returns it with
// reasoning removed.
//
// A failed request is logged and answered with ApologyText; the user turn stays in the
// history but no assistant turn is added. LastErr tells the two outcomes apart.
func (s *Session) Submit(ctx context.Context, userText string) string {
	s.turns = append(s.turns, NewTurn(RoleUser, userText))

	start := time.Now()
	resp, err := s.completer.Complete(ctx, llm.Request{
		Messages: s.turns.Messages(s.systemPrompt),
	})
	if err != nil {
		s.lastErr = err
		s.lastTrimmed = 0
		s.logger.Error().Err(err).
			Int("turns", len(s.turns)).
			Dur("duration", time.Since(start)).
			Msg("LLM error")
		return ApologyText
	}
	s.lastErr = nil

	text := reasoning.Strip(resp.Text)
	if resp.HasUsage {
		s.reportedTokens = resp.TotalTokens
	}

	s.turns = append(s.turns, NewTurn(RoleAssistant, text))

	s.logger.Trace().
		Int("raw_length", len(resp.Text)).
		Int("clean_length", len(text)).
		Int("turns", len(s.turns)).
		Dur("duration", time.Since(start)).
		Msg("assistant turn appended")

	s.trim()

	return text
}

func (s *Session) trim() {
	s.lastTrimmed = 0

	u := s.Usage()
	if !s.policy.ShouldTrim(u) {
		return
	}

	n := s.policy.DropCount(len(s.turns))
	if n == 0 {
		s.logger.Debug().
			Int("turns", len(s.turns)).
			Float64("percent_used", u.PercentUsed).
			Msg("context over trim threshold, history too short to trim")
		return
	}
	s.turns = append(Conversation(nil), s.turns[n:]...)
	s.lastTrimmed = n

	s.logger.Warn().
		Int("dropped", n).
		Int("turns", len(s.turns)).
		Float64("percent_used", u.PercentUsed).
		Msg("trimmed old conversation to free context")
}

// Usage recomputes the estimated budget from the current turns.
func (s *Session) Usage() Usage {
	u := computeUsage(s.estimator, s.systemTokens, s.contextLimit, s.turns)
	u.Reported = s.reportedTokens
	return u
}

// Clear drops every turn. The system prompt estimate is kept.
func (s *Session) Clear() {
	s.turns = nil
	s.lastTrimmed = 0
	s.logger.Info().Msg("conversation history cleared")
}

// Turns returns a copy of the history, oldest first.
func (s *Session) Turns() Conversation {
	return append(Conversation(nil), s.turns...)
}

func (s *Session) SystemPrompt() string {
	return s.systemPrompt
}

func (s *Session) ContextLimit() int {
	return s.contextLimit
}

// LastErr is the error of the last Submit, nil if it produced a real reply.
func (s *Session) LastErr() error {
	return s.lastErr
}

// LastTrimmed is the number of turns evicted by the last successful Submit.
func (s *Session) LastTrimmed() int {
	return s.lastTrimmed
}
