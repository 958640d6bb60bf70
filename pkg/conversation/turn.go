// Package conversation keeps the turn history of a single spoken conversation with a
// language model.
//
// A Session owns the ordered user and assistant turns, while the system prompt is held
// apart and prepended to every request. After each successful exchange the session
// recomputes its estimated token budget and evicts the oldest turns once the budget
// crosses the trim threshold. Replies are stored with reasoning segments removed, so
// hidden deliberation never consumes context on later turns.
package conversation

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/jarvis/pkg/llm"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Turn is one message of the conversation. Turns are never edited once appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content}
}

func (t Turn) String() string {
	return fmt.Sprintf("[%s]: %s", t.Role, strings.TrimRight(t.Content, "\n"))
}

type Conversation []Turn

// Messages converts the turns to request messages, with system prepended when not empty.
func (c Conversation) Messages(system string) []llm.Message {
	ret := make([]llm.Message, 0, len(c)+1)
	if system != "" {
		ret = append(ret, llm.Message{Role: string(RoleSystem), Content: system})
	}
	for _, t := range c {
		ret = append(ret, llm.Message{Role: string(t.Role), Content: t.Content})
	}
	return ret
}

// Exchanges is the number of complete user/assistant pairs.
func (c Conversation) Exchanges() int {
	return len(c) / 2
}
