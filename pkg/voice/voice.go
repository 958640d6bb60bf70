package voice

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/jarvis/pkg/settings"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateUnselected State = iota
	StateSelecting
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUnselected:
		return "unselected"
	case StateSelecting:
		return "selecting"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type Status struct {
	State   State
	Backend string
	Rule    string
	// Err is why the voice is unavailable.
	Err error
}

// Voice owns the selected backend for the lifetime of a session. Initialize runs the
// selection once; the outcome is final until Reinitialize is called.
type Voice struct {
	settings     *settings.VoiceOutputSettings
	deps         Dependencies
	factory      BackendFactory
	caps         *HostCapabilities
	probeTimeout time.Duration

	mu        sync.Mutex
	state     State
	backend   Backend
	selection Selection
	err       error

	logger zerolog.Logger
}

type Option func(*Voice)

func WithLogger(logger zerolog.Logger) Option {
	return func(v *Voice) {
		v.logger = logger
	}
}

func WithDependencies(deps Dependencies) Option {
	return func(v *Voice) {
		v.deps = deps
	}
}

func WithBackendFactory(factory BackendFactory) Option {
	return func(v *Voice) {
		v.factory = factory
	}
}

// WithHostCapabilities skips probing the host.
func WithHostCapabilities(caps HostCapabilities) Option {
	return func(v *Voice) {
		v.caps = &caps
	}
}

func WithProbeTimeout(timeout time.Duration) Option {
	return func(v *Voice) {
		v.probeTimeout = timeout
	}
}

func New(s *settings.VoiceOutputSettings, options ...Option) *Voice {
	if s == nil {
		s = settings.NewSettings().VoiceOutput
	}
	ret := &Voice{
		settings:     s,
		factory:      NewBackend,
		probeTimeout: DefaultProbeTimeout,
		state:        StateUnselected,
		logger:       log.Logger,
	}
	for _, option := range options {
		option(ret)
	}
	ret.logger = ret.logger.With().Str("component", "voice").Logger()
	if ret.deps.Logger == nil {
		ret.deps.Logger = &ret.logger
	}
	return ret
}

// Initialize selects and starts a backend. Failures leave the voice Unavailable and are
// returned for reporting; another backend is never tried. Calling Initialize again
// returns the first outcome.
func (v *Voice) Initialize(ctx context.Context) error {
	v.mu.Lock()
	if v.state != StateUnselected {
		err := v.err
		v.mu.Unlock()
		return err
	}
	v.state = StateSelecting
	v.mu.Unlock()

	backend, sel, err := v.selectBackend(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.selection = sel
	if err != nil {
		v.state = StateUnavailable
		v.err = err
		v.logger.Warn().Err(err).Str("rule", sel.Rule).Msg("no voice, replies will only be printed")
		return err
	}
	v.state = StateReady
	v.backend = backend
	v.err = nil
	v.logger.Info().Str("backend", backend.Name()).Str("rule", sel.Rule).Msg("voice ready")
	return nil
}

func (v *Voice) selectBackend(ctx context.Context) (Backend, Selection, error) {
	var caps HostCapabilities
	if v.caps != nil {
		caps = *v.caps
	} else {
		caps = ProbeHost(ctx, v.deps, v.probeTimeout)
	}

	sel, err := Select(v.settings, caps)
	if err != nil {
		return nil, sel, err
	}

	backend, err := v.factory(sel.Descriptor, v.deps)
	if err != nil {
		return nil, sel, err
	}
	if err := backend.Initialize(ctx); err != nil {
		_ = backend.Close()
		return nil, sel, err
	}
	return backend, sel, nil
}

// Reinitialize closes the current backend and runs the selection again.
func (v *Voice) Reinitialize(ctx context.Context) error {
	v.Close()

	v.mu.Lock()
	v.state = StateUnselected
	v.err = nil
	v.selection = Selection{}
	v.mu.Unlock()

	return v.Initialize(ctx)
}

// Speak says text and blocks until playback is over. Empty text is ignored. When no
// backend is ready, or synthesis fails, the problem is logged and Speak returns.
func (v *Voice) Speak(ctx context.Context, text string) {
	if text == "" {
		return
	}

	v.mu.Lock()
	state, backend := v.state, v.backend
	v.mu.Unlock()

	if state != StateReady || backend == nil {
		v.logger.Warn().Str("state", state.String()).Msg("voice not initialized")
		return
	}

	speech := SanitizeForSpeech(text)
	if speech == "" {
		return
	}

	start := time.Now()
	if err := backend.Speak(ctx, speech); err != nil {
		v.logger.Warn().Err(err).Str("backend", backend.Name()).Msg("TTS error")
		return
	}
	v.logger.Debug().Dur("duration", time.Since(start)).Int("chars", len(speech)).Msg("spoke reply")
}

// Stop interrupts playback, if any.
func (v *Voice) Stop() {
	v.mu.Lock()
	backend := v.backend
	v.mu.Unlock()

	if backend != nil {
		backend.Stop()
	}
}

// Close releases the backend. Errors are logged, never returned.
func (v *Voice) Close() {
	v.mu.Lock()
	backend := v.backend
	v.backend = nil
	if v.state == StateReady {
		v.state = StateUnavailable
	}
	v.mu.Unlock()

	if backend == nil {
		return
	}
	if err := backend.Close(); err != nil {
		v.logger.Debug().Err(err).Msg("could not close voice backend")
	}
}

func (v *Voice) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	ret := Status{
		State: v.state,
		Rule:  v.selection.Rule,
		Err:   v.err,
	}
	if v.backend != nil {
		ret.Backend = v.backend.Name()
	}
	return ret
}
