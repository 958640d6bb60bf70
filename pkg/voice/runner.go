package voice

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Runner starts an external program and waits for it. Cancelling ctx kills it.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader) error
}

type ExecRunner struct{}

var _ Runner = ExecRunner{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return errors.Wrapf(err, "%s: %s", name, msg)
		}
		return errors.Wrapf(err, "%s failed", name)
	}
	return nil
}

// LookPathFunc resolves a program name to a path, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// interruptible runs one program at a time and lets another goroutine stop it.
type interruptible struct {
	runner Runner

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// run returns nil when the program was ended by stop.
func (p *interruptible) run(ctx context.Context, name string, args []string, stdin io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	p.cancel = cancel
	p.stopped = false
	p.mu.Unlock()

	err := p.runner.Run(ctx, name, args, stdin)

	p.mu.Lock()
	stopped := p.stopped
	p.cancel = nil
	p.mu.Unlock()

	if stopped {
		return nil
	}
	return err
}

func (p *interruptible) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.stopped = true
		p.cancel()
	}
}
