package voice

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Say speaks through the macOS say(1) command. The text is passed on stdin, so
// it never reaches a shell or the argument list.
type Say struct {
	voice string
	rate  int

	goos     string
	lookPath LookPathFunc
	proc     *interruptible
	logger   zerolog.Logger

	path string
}

var _ Backend = (*Say)(nil)

func NewSay(d LocalNative, deps Dependencies) *Say {
	deps = deps.withDefaults()
	return &Say{
		voice:    d.VoiceName,
		rate:     d.Rate,
		goos:     deps.GOOS,
		lookPath: deps.LookPath,
		proc:     &interruptible{runner: deps.Runner},
		logger:   deps.Logger.With().Str("backend", "say").Logger(),
	}
}

func (s *Say) Name() string {
	if s.voice == "" {
		return "macOS say"
	}
	return "macOS say (" + s.voice + ")"
}

func (s *Say) Initialize(ctx context.Context) error {
	if s.goos != "darwin" {
		return errors.Wrapf(ErrNotSupported, "running on %s", s.goos)
	}
	path, err := s.lookPath("say")
	if err != nil {
		return errors.Wrap(ErrNotSupported, "say is not installed")
	}
	s.path = path
	return nil
}

func (s *Say) args() []string {
	var args []string
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	if s.rate > 0 {
		args = append(args, "-r", strconv.Itoa(s.rate))
	}
	return args
}

func (s *Say) Speak(ctx context.Context, text string) error {
	if s.path == "" {
		return ErrNotReady
	}
	s.logger.Trace().Int("chars", len(text)).Msg("speaking")
	if err := s.proc.run(ctx, s.path, s.args(), strings.NewReader(text)); err != nil {
		return errors.Wrap(err, "say failed")
	}
	return nil
}

func (s *Say) Stop() {
	s.proc.stop()
}

func (s *Say) Close() error {
	s.proc.stop()
	return nil
}
