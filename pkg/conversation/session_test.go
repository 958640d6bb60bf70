package conversation

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-go-golems/jarvis/pkg/llm"
	"github.com/go-go-golems/jarvis/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReply struct {
	text  string
	total int
	err   error
}

type fakeCompleter struct {
	replies  []fakeReply
	requests []llm.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	msgs := append([]llm.Message(nil), req.Messages...)
	f.requests = append(f.requests, llm.Request{Messages: msgs})

	if len(f.replies) == 0 {
		return nil, errors.New("no reply scripted")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Completion{Text: r.text, TotalTokens: r.total, HasUsage: r.total > 0}, nil
}

func (f *fakeCompleter) push(text string) {
	f.replies = append(f.replies, fakeReply{text: text})
}

func newTestSession(t *testing.T, c llm.Completer, options ...SessionOption) (*Session, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	options = append(options, WithLogger(zerolog.New(buf)))
	s, err := NewSession(c, options...)
	require.NoError(t, err)
	return s, buf
}

func TestSubmitStoresCleanReply(t *testing.T) {
	c := &fakeCompleter{}
	c.push("<think>the user is rude</think>\n\nWhat do you want?")
	c.push("Fine.")

	s, _ := newTestSession(t, c, WithSystemPrompt("be sharp"))

	reply := s.Submit(context.Background(), "hello")
	assert.Equal(t, "What do you want?", reply)
	assert.NoError(t, s.LastErr())
	assert.Equal(t, Conversation{
		NewTurn(RoleUser, "hello"),
		NewTurn(RoleAssistant, "What do you want?"),
	}, s.Turns())

	s.Submit(context.Background(), "nothing")

	require.Len(t, c.requests, 2)
	assert.Equal(t, []llm.Message{
		{Role: "system", Content: "be sharp"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "What do you want?"},
		{Role: "user", Content: "nothing"},
	}, c.requests[1].Messages)
}

func TestSubmitFailureReturnsApologyAndKeepsUserTurn(t *testing.T) {
	c := &fakeCompleter{replies: []fakeReply{{err: errors.New("connection refused")}}}
	s, logs := newTestSession(t, c)

	reply := s.Submit(context.Background(), "are you there?")
	assert.Equal(t, ApologyText, reply)
	assert.Error(t, s.LastErr())
	assert.Equal(t, Conversation{NewTurn(RoleUser, "are you there?")}, s.Turns())
	assert.Contains(t, logs.String(), "connection refused")
}

func TestSubmitServerErrorOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	ls := settings.NewSettings().LLM
	ls.APIBase = server.URL + "/v1"
	s, _ := newTestSession(t, llm.NewClient(ls))

	reply := s.Submit(context.Background(), "hello")
	assert.Equal(t, ApologyText, reply)
	turns := s.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, RoleUser, turns[0].Role)
}

func TestSubmitRecordsReportedUsage(t *testing.T) {
	c := &fakeCompleter{replies: []fakeReply{{text: "a", total: 321}, {text: "b"}}}
	s, _ := newTestSession(t, c)

	s.Submit(context.Background(), "x")
	assert.Equal(t, 321, s.Usage().Reported)

	s.Submit(context.Background(), "y")
	assert.Equal(t, 321, s.Usage().Reported, "a reply without usage keeps the last reported figure")
}

func TestUsageScenarioAtContextLimit(t *testing.T) {
	c := &fakeCompleter{}
	c.push(strings.Repeat("r", 120))
	s, logs := newTestSession(t, c,
		WithContextLimit(100),
		WithSystemPrompt(strings.Repeat("s", 80)),
	)
	require.Equal(t, 20, s.Usage().System)

	s.Submit(context.Background(), strings.Repeat("u", 200))

	u := s.Usage()
	assert.Equal(t, 20, u.System)
	assert.Equal(t, 50, u.User)
	assert.Equal(t, 30, u.Assistant)
	assert.Equal(t, 100, u.Total)
	assert.Equal(t, 0, u.Remaining)
	assert.InDelta(t, 100.0, u.PercentUsed, 0.001)

	// the policy fires, but two turns floor-divided by five drops nothing
	assert.NotContains(t, logs.String(), "trimmed old conversation")
	assert.NotContains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "history too short to trim")
	assert.Equal(t, 0, s.LastTrimmed())
	assert.Len(t, s.Turns(), 2)
}

func TestTrimDropsOldestFifth(t *testing.T) {
	c := &fakeCompleter{}
	s, _ := newTestSession(t, c, WithContextLimit(100))

	user := func(i int) string { return fmt.Sprintf("user %02d %s", i, strings.Repeat("u", 32)) }
	reply := func(i int) string { return fmt.Sprintf("reply %02d %s", i, strings.Repeat("r", 31)) }

	for i := 0; i < 4; i++ {
		c.push(reply(i))
		s.Submit(context.Background(), user(i))
		assert.Equal(t, 0, s.LastTrimmed())
	}
	require.Len(t, s.Turns(), 8)
	assert.InDelta(t, 80.0, s.Usage().PercentUsed, 0.001)

	c.push(reply(4))
	s.Submit(context.Background(), user(4))

	// 10 turns at the check, 100% used: the oldest 10/5 = 2 go
	assert.Equal(t, 2, s.LastTrimmed())
	turns := s.Turns()
	require.Len(t, turns, 8)
	assert.Equal(t, user(1), turns[0].Content)
	assert.Equal(t, reply(4), turns[len(turns)-1].Content)
}

func TestTrimPolicyIsConfigurable(t *testing.T) {
	c := &fakeCompleter{}
	s, _ := newTestSession(t, c,
		WithContextLimit(100),
		WithTrimPolicy(TrimPolicy{Threshold: 10, Divisor: 2}),
	)

	c.push(strings.Repeat("r", 40))
	s.Submit(context.Background(), strings.Repeat("u", 40))

	assert.Equal(t, 1, s.LastTrimmed())
	assert.Equal(t, Conversation{NewTurn(RoleAssistant, strings.Repeat("r", 40))}, s.Turns())
}

func TestNoTrimBelowThreshold(t *testing.T) {
	c := &fakeCompleter{}
	s, logs := newTestSession(t, c, WithContextLimit(1000))

	for i := 0; i < 10; i++ {
		c.push("short reply")
		s.Submit(context.Background(), "short question")
	}
	assert.Len(t, s.Turns(), 20)
	assert.NotContains(t, logs.String(), "trimmed")
}

func TestClearResetsHistoryButNotSystemEstimate(t *testing.T) {
	c := &fakeCompleter{}
	c.push("a reply that has some length to it")
	s, _ := newTestSession(t, c, WithSystemPrompt(strings.Repeat("p", 400)))

	s.Submit(context.Background(), "a question of some length")
	require.NotZero(t, s.Usage().User)

	s.Clear()

	u := s.Usage()
	assert.Equal(t, 100, u.System)
	assert.Equal(t, u.System, u.Total)
	assert.Equal(t, 0, u.User)
	assert.Equal(t, 0, u.Assistant)
	assert.Empty(t, s.Turns())
}

func TestUsageRemainingGoesNegative(t *testing.T) {
	c := &fakeCompleter{}
	c.push(strings.Repeat("r", 400))
	s, _ := newTestSession(t, c,
		WithContextLimit(50),
		WithTrimPolicy(TrimPolicy{Threshold: 1000, Divisor: 5}),
	)

	s.Submit(context.Background(), "hi")
	u := s.Usage()
	assert.Equal(t, 100, u.Total)
	assert.Equal(t, -50, u.Remaining)
	assert.InDelta(t, 200.0, u.PercentUsed, 0.001)
}

func TestNewSessionValidates(t *testing.T) {
	_, err := NewSession(nil)
	assert.Error(t, err)

	_, err = NewSession(&fakeCompleter{}, WithContextLimit(0))
	assert.Error(t, err)

	_, err = NewSession(&fakeCompleter{}, WithTrimPolicy(TrimPolicy{Threshold: 85}))
	assert.Error(t, err)
}

func TestTurnsReturnsCopy(t *testing.T) {
	c := &fakeCompleter{}
	c.push("ok")
	s, _ := newTestSession(t, c)
	s.Submit(context.Background(), "hi")

	turns := s.Turns()
	turns[0].Content = "changed"
	assert.Equal(t, "hi", s.Turns()[0].Content)
}
