package voice

import (
	"context"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Player plays a complete mp3 clip and returns when playback is over.
type Player interface {
	Play(ctx context.Context, audio []byte) error
	Stop()
}

type playerCommand struct {
	binary string
	args   []string
}

// knownPlayers are tried in order when no player is configured.
var knownPlayers = []playerCommand{
	{"afplay", nil},
	{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{"mpg123", []string{"-q"}},
	{"mpv", []string{"--no-video", "--really-quiet"}},
}

// ProcessPlayer writes the clip to a temporary file and hands it to a command line player.
type ProcessPlayer struct {
	path string
	args []string

	proc   *interruptible
	logger zerolog.Logger
}

var _ Player = (*ProcessPlayer)(nil)

// FindPlayer locates preferred, or the first known player when preferred is empty.
func FindPlayer(preferred string, lookPath LookPathFunc, runner Runner, logger zerolog.Logger) (*ProcessPlayer, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if runner == nil {
		runner = ExecRunner{}
	}

	candidates := knownPlayers
	if preferred != "" {
		candidates = []playerCommand{{binary: preferred}}
		for _, p := range knownPlayers {
			if p.binary == preferred {
				candidates = []playerCommand{p}
			}
		}
	}

	for _, c := range candidates {
		path, err := lookPath(c.binary)
		if err != nil {
			continue
		}
		return &ProcessPlayer{
			path:   path,
			args:   c.args,
			proc:   &interruptible{runner: runner},
			logger: logger,
		}, nil
	}

	if preferred != "" {
		return nil, errors.Wrapf(ErrNoPlayer, "%s is not installed", preferred)
	}
	return nil, ErrNoPlayer
}

func (p *ProcessPlayer) Path() string {
	return p.path
}

func (p *ProcessPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	f, err := os.CreateTemp("", "jarvis-*.mp3")
	if err != nil {
		return errors.Wrap(err, "could not create audio file")
	}
	defer func() {
		if err := os.Remove(f.Name()); err != nil {
			p.logger.Debug().Err(err).Str("file", f.Name()).Msg("could not remove audio file")
		}
	}()

	if _, err := f.Write(audio); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "could not write audio file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "could not write audio file")
	}

	args := append(append([]string(nil), p.args...), f.Name())
	p.logger.Trace().Str("player", p.path).Int("bytes", len(audio)).Msg("playing clip")

	return p.proc.run(ctx, p.path, args, nil)
}

func (p *ProcessPlayer) Stop() {
	p.proc.stop()
}
