package voice

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type runCall struct {
	name  string
	args  []string
	stdin string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall

	err     error
	block   bool
	started chan struct{}
	onRun   func(name string, args []string)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) error {
	var in string
	if stdin != nil {
		b, _ := io.ReadAll(stdin)
		in = string(b)
	}

	f.mu.Lock()
	f.calls = append(f.calls, runCall{name: name, args: append([]string(nil), args...), stdin: in})
	f.mu.Unlock()

	if f.onRun != nil {
		f.onRun(name, args)
	}
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeRunner) Calls() []runCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runCall(nil), f.calls...)
}

func lookPathFor(installed ...string) LookPathFunc {
	return func(file string) (string, error) {
		for _, i := range installed {
			if i == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errors.Errorf("%s: not found", file)
	}
}

type fakePlayer struct {
	mu      sync.Mutex
	played  [][]byte
	stopped int
	err     error
}

func (p *fakePlayer) Play(ctx context.Context, audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, append([]byte(nil), audio...))
	return p.err
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
}

type fakeBackend struct {
	name     string
	initErr  error
	speakErr error

	mu     sync.Mutex
	spoken []string
	inits  int
	stops  int
	closed int
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inits++
	return b.initErr
}

func (b *fakeBackend) Speak(ctx context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spoken = append(b.spoken, text)
	return b.speakErr
}

func (b *fakeBackend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

func testLogger() (zerolog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return zerolog.New(buf).Level(zerolog.TraceLevel), buf
}
