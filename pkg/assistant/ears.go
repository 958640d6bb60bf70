package assistant

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tcnksm/go-input"
)

// ErrInputClosed is returned by Input.Listen once the user can no longer type:
// end of input or an interrupt.
var ErrInputClosed = errors.New("input closed")

// Input supplies the user's lines to the loop.
type Input interface {
	Listen(ctx context.Context) (string, error)
}

// Ears reads typed lines from a terminal. Dictation tools that type into the
// terminal work the same way.
type Ears struct {
	ui     *input.UI
	reader *lineReader
	prompt string
	logger zerolog.Logger
}

var _ Input = (*Ears)(nil)

type EarsOption func(*Ears)

func WithEarsLogger(logger zerolog.Logger) EarsOption {
	return func(e *Ears) {
		e.logger = logger
	}
}

func NewEars(r io.Reader, w io.Writer, prompt string, options ...EarsOption) *Ears {
	reader := newLineReader(r)
	ret := &Ears{
		ui: &input.UI{
			Writer: w,
			Reader: reader,
		},
		reader: reader,
		prompt: prompt,
		logger: log.Logger,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Listen blocks until the user has entered a line and returns it trimmed.
func (e *Ears) Listen(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrInputClosed
	}

	answer, err := e.ui.Ask(e.prompt+":", &input.Options{
		HideOrder: true,
	})
	if err != nil {
		if errors.Is(err, input.ErrInterrupted) || e.reader.atEOF() {
			return "", ErrInputClosed
		}
		e.logger.Debug().Err(err).Msg("could not read input")
		return "", errors.Wrap(err, "could not read input")
	}

	answer = strings.TrimSpace(answer)
	if answer == "" && e.reader.atEOF() {
		return "", ErrInputClosed
	}
	return answer, nil
}

// lineReader hands out at most one line per Read, so a prompt that wraps it in a fresh
// buffer on every question never swallows the lines after the first. It also remembers
// whether the source has run dry.
type lineReader struct {
	br      *bufio.Reader
	pending []byte

	mu  sync.Mutex
	eof bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReader(r)}
}

func (l *lineReader) Read(p []byte) (int, error) {
	if len(l.pending) == 0 {
		line, err := l.br.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			if err == io.EOF {
				l.mu.Lock()
				l.eof = true
				l.mu.Unlock()
			}
			return 0, err
		}
		l.pending = line
	}
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	return n, nil
}

func (l *lineReader) atEOF() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eof
}
