package voice

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Backend is one synthesis engine. Speak blocks until the utterance has been played.
type Backend interface {
	Name() string
	Initialize(ctx context.Context) error
	Speak(ctx context.Context, text string) error
	// Stop interrupts playback. It is safe to call at any time.
	Stop()
	Close() error
}

// BackendFactory builds a backend for a descriptor. Voice uses NewBackend unless
// a factory is injected.
type BackendFactory func(d Descriptor, deps Dependencies) (Backend, error)

// Dependencies are the host facilities backends are built on.
type Dependencies struct {
	HTTPClient *http.Client
	Runner     Runner
	LookPath   LookPathFunc
	GOOS       string
	Logger     *zerolog.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.HTTPClient == nil {
		d.HTTPClient = http.DefaultClient
	}
	if d.Runner == nil {
		d.Runner = ExecRunner{}
	}
	if d.LookPath == nil {
		d.LookPath = defaultLookPath
	}
	if d.GOOS == "" {
		d.GOOS = defaultGOOS
	}
	if d.Logger == nil {
		d.Logger = &log.Logger
	}
	return d
}

func NewBackend(d Descriptor, deps Dependencies) (Backend, error) {
	deps = deps.withDefaults()
	switch d := d.(type) {
	case RemoteSynthesis:
		return NewElevenLabs(d, deps), nil
	case LocalNative:
		return NewSay(d, deps), nil
	case nil:
		return nil, ErrNoBackend
	default:
		return nil, errors.Errorf("unknown backend descriptor %T", d)
	}
}
