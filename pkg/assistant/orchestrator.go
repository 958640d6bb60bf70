// Package assistant runs the conversation loop: it reads what the user types, answers
// commands, sends everything else to the model and speaks the reply.
package assistant

import (
	"context"
	"io"
	"strings"

	"github.com/go-go-golems/jarvis/pkg/conversation"
	"github.com/go-go-golems/jarvis/pkg/voice"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	GreetingText = "I'm here. What do you need?"
	ClearedText  = "Memory cleared. A fresh start, then."
	FarewellText = "Until next time."

	initFailureText = "Failed to initialize. Is LM Studio running?"
	commandsHint    = "Commands: 'quit' to exit | 'clear' to reset memory | 'status' for token usage"
)

// Brain is the conversation the loop talks to.
type Brain interface {
	Submit(ctx context.Context, text string) string
	Usage() conversation.Usage
	Clear()
	Turns() conversation.Conversation
	LastErr() error
	LastTrimmed() int
}

// Speaker turns replies into sound. Speak never fails; problems are logged.
type Speaker interface {
	Initialize(ctx context.Context) error
	Speak(ctx context.Context, text string)
	Stop()
	Close()
	Status() voice.Status
}

// Prober checks that the model server is reachable before the loop starts.
type Prober interface {
	Probe(ctx context.Context) error
}

var (
	_ Brain   = (*conversation.Session)(nil)
	_ Speaker = (*voice.Voice)(nil)
)

type command int

const (
	commandNone command = iota
	commandQuit
	commandClear
	commandStatus
	commandSubmit
)

func parseCommand(line string) command {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return commandNone
	case "quit", "exit", "bye":
		return commandQuit
	case "clear":
		return commandClear
	case "status":
		return commandStatus
	default:
		return commandSubmit
	}
}

type Orchestrator struct {
	input   Input
	brain   Brain
	speaker Speaker
	prober  Prober
	console *Console
	name    string

	logger zerolog.Logger
}

type Option func(*Orchestrator)

func WithProber(p Prober) Option {
	return func(o *Orchestrator) {
		o.prober = p
	}
}

func WithConsole(c *Console) Option {
	return func(o *Orchestrator) {
		o.console = c
	}
}

func WithAssistantName(name string) Option {
	return func(o *Orchestrator) {
		o.name = name
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func NewOrchestrator(input Input, brain Brain, speaker Speaker, options ...Option) *Orchestrator {
	ret := &Orchestrator{
		input:   input,
		brain:   brain,
		speaker: speaker,
		name:    DefaultAssistantName,
		logger:  log.Logger,
	}
	for _, option := range options {
		option(ret)
	}
	if ret.console == nil {
		ret.console = NewConsole(io.Discard)
	}
	ret.logger = ret.logger.With().Str("component", "orchestrator").Logger()
	return ret
}

// Run initializes the voice and the model server, then serves lines until the user
// quits, input ends or ctx is cancelled. Only a failed model server check and an
// unreadable input are returned as errors.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.console.Ready("Text input ready")

	if err := o.speaker.Initialize(ctx); err != nil {
		o.console.Warn("Voice unavailable: " + err.Error())
	} else {
		o.console.Ready("Voice ready (" + o.speaker.Status().Backend + ")")
	}

	if o.prober != nil {
		if err := o.prober.Probe(ctx); err != nil {
			o.console.Error(initFailureText)
			o.speaker.Close()
			return errors.Wrap(err, "model server is not reachable")
		}
		o.console.Ready("Model server ready")
	}

	o.say(ctx, GreetingText)
	o.console.Blank()
	o.console.Info(commandsHint)
	o.console.Blank()

	for {
		if ctx.Err() != nil {
			o.shutdown(context.Background())
			return nil
		}

		line, err := o.input.Listen(ctx)
		if err != nil {
			if errors.Is(err, ErrInputClosed) || errors.Is(err, io.EOF) {
				o.shutdown(context.Background())
				return nil
			}
			o.shutdown(context.Background())
			return errors.Wrap(err, "input failed")
		}

		if !o.handle(ctx, line) {
			o.shutdown(ctx)
			return nil
		}
	}
}

// handle processes one line and reports whether the loop should go on.
func (o *Orchestrator) handle(ctx context.Context, line string) bool {
	switch parseCommand(line) {
	case commandNone:
		return true

	case commandQuit:
		return false

	case commandClear:
		o.brain.Clear()
		o.console.Info("Conversation history cleared")
		o.console.TokenBar(o.brain.Usage(), len(o.brain.Turns()))
		o.say(ctx, ClearedText)
		return true

	case commandStatus:
		o.console.StatusPanel(o.brain.Usage(), o.name)
		return true

	case commandSubmit:
		reply := o.brain.Submit(ctx, line)
		if err := o.brain.LastErr(); err != nil {
			o.console.Error("LLM error: " + err.Error())
		} else {
			if n := o.brain.LastTrimmed(); n > 0 {
				o.console.Warn("Trimmed old conversation to free memory")
			}
			o.console.TokenBar(o.brain.Usage(), len(o.brain.Turns()))
		}
		o.say(ctx, reply)
		o.console.Blank()
		return true
	}

	return true
}

func (o *Orchestrator) say(ctx context.Context, text string) {
	if text == "" {
		return
	}
	o.console.Reply(o.name, text)
	o.speaker.Speak(ctx, text)
}

func (o *Orchestrator) shutdown(ctx context.Context) {
	o.say(ctx, FarewellText)
	o.speaker.Close()
	o.logger.Debug().Int("turns", len(o.brain.Turns())).Msg("session ended")
}
