package cmds

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/jarvis/pkg/assistant"
	"github.com/go-go-golems/jarvis/pkg/conversation"
	"github.com/go-go-golems/jarvis/pkg/llm"
	"github.com/go-go-golems/jarvis/pkg/settings"
	"github.com/go-go-golems/jarvis/pkg/tokens"
	"github.com/go-go-golems/jarvis/pkg/voice"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start a conversation (the default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunAssistant(cmd.Context(), viper.GetString("config"), os.Stdin, os.Stdout)
		},
	}
}

// LoadSettings reads the config file, the environment and the defaults, in reverse
// order of precedence.
func LoadSettings(configPath string) (*settings.Settings, error) {
	v, err := settings.NewViper()
	if err != nil {
		return nil, err
	}
	if err := settings.ReadConfig(v, configPath); err != nil {
		return nil, err
	}
	s, err := settings.Load(v)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("config", v.ConfigFileUsed()).
		Msg("Loaded configuration")

	return s, nil
}

// RunAssistant wires the model client, the session, the voice and the terminal
// input together and runs the conversation loop until the user leaves.
func RunAssistant(ctx context.Context, configPath string, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := LoadSettings(configPath)
	if err != nil {
		return err
	}

	client := llm.NewClient(s.LLM, llm.WithLogger(log.Logger))

	session, err := conversation.NewSession(client,
		conversation.WithSystemPrompt(assistant.SystemPrompt(s.LLM.SystemPrompt)),
		conversation.WithContextLimit(s.LLM.ContextLimit),
		conversation.WithEstimator(tokens.ForName(s.LLM.TokenEstimator)),
		conversation.WithTrimPolicy(conversation.TrimPolicy{
			Threshold: s.LLM.TrimThreshold,
			Divisor:   s.LLM.TrimDivisor,
		}),
		conversation.WithLogger(log.Logger),
	)
	if err != nil {
		return errors.Wrap(err, "could not start session")
	}

	speaker := voice.New(s.VoiceOutput, voice.WithLogger(log.Logger))

	ears := assistant.NewEars(in, out, s.VoiceInput.Prompt, assistant.WithEarsLogger(log.Logger))

	o := assistant.NewOrchestrator(ears, session, speaker,
		assistant.WithProber(client),
		assistant.WithConsole(assistant.NewConsole(out)),
		assistant.WithLogger(log.Logger),
	)

	return o.Run(ctx)
}
