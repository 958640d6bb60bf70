package cmds

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/jarvis/pkg/reasoning"
	"github.com/go-go-golems/jarvis/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewTokensCommand() (*cobra.Command, error) {
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Commands related to tokens",
	}

	countCmdInstance, err := NewCountCommand()
	if err != nil {
		return nil, err
	}
	countCommand, err := cli.BuildCobraCommandFromWriterCommand(countCmdInstance)
	if err != nil {
		return nil, err
	}
	tokensCmd.AddCommand(countCommand)

	return tokensCmd, nil
}

type CountSettings struct {
	Codec          string `glazed.parameter:"codec"`
	StripReasoning bool   `glazed.parameter:"strip-reasoning"`
	File           string `glazed.parameter:"file"`
}

type CountCommand struct {
	*cmds.CommandDescription
	stdin io.Reader
}

var _ cmds.WriterCommand = (*CountCommand)(nil)

func NewCountCommand() (*CountCommand, error) {
	return &CountCommand{
		CommandDescription: cmds.NewCommandDescription(
			"count",
			cmds.WithShort("Estimate how much context a text uses, reading stdin without a file"),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"codec",
					parameters.ParameterTypeString,
					parameters.WithHelp("Codec used for the exact count"),
					parameters.WithDefault(tokens.DefaultEncoding),
				),
				parameters.NewParameterDefinition(
					"strip-reasoning",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Remove <think> segments before counting"),
					parameters.WithDefault(false),
				),
			),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"file",
					parameters.ParameterTypeString,
					parameters.WithHelp("Input file, - or nothing for stdin"),
					parameters.WithDefault("-"),
				),
			),
		),
		stdin: os.Stdin,
	}, nil
}

func (cc *CountCommand) RunIntoWriter(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	w io.Writer,
) error {
	s := &CountSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}
	return cc.count(s, w)
}

func (cc *CountCommand) count(s *CountSettings, w io.Writer) error {
	r := cc.stdin
	if s.File != "" && s.File != "-" {
		f, err := os.Open(s.File)
		if err != nil {
			return errors.Wrapf(err, "could not open %s", s.File)
		}
		defer f.Close()
		r = f
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "could not read input")
	}
	text := string(b)
	if s.StripReasoning {
		text = reasoning.Strip(text)
	}

	return writeCounts(w, text, s.Codec)
}

func writeCounts(w io.Writer, text string, encoding string) error {
	_, err := fmt.Fprintf(w, "Characters: %d\n", len([]rune(text)))
	if err != nil {
		return errors.Wrap(err, "error writing to output")
	}
	_, err = fmt.Fprintf(w, "Estimated tokens: %d\n", tokens.EstimateTokens(text))
	if err != nil {
		return errors.Wrap(err, "error writing to output")
	}

	exact, err := tokens.NewTiktokenEstimator(encoding).Count(text)
	if err != nil {
		_, err = fmt.Fprintf(w, "Codec %s: unavailable (%v)\n", encoding, err)
	} else {
		_, err = fmt.Fprintf(w, "Codec %s: %d\n", encoding, exact)
	}
	if err != nil {
		return errors.Wrap(err, "error writing to output")
	}
	return nil
}
