package voice

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-go-golems/jarvis/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultElevenLabsBaseURL = "https://api.elevenlabs.io"

// maxErrorBody caps how much of a failed response ends up in the error message.
const maxErrorBody = 512

type synthesizer interface {
	synthesize(ctx context.Context, text string) ([]byte, error)
}

// ElevenLabs synthesizes speech remotely and plays the returned mp3 locally.
type ElevenLabs struct {
	desc    RemoteSynthesis
	baseURL string
	client  *http.Client

	lookPath LookPathFunc
	runner   Runner

	synth        synthesizer
	player       Player
	subscription Subscription

	mu     sync.Mutex
	cancel context.CancelFunc

	logger zerolog.Logger
}

var _ Backend = (*ElevenLabs)(nil)

func NewElevenLabs(d RemoteSynthesis, deps Dependencies) *ElevenLabs {
	deps = deps.withDefaults()

	baseURL := strings.TrimRight(d.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultElevenLabsBaseURL
	}

	return &ElevenLabs{
		desc:     d,
		baseURL:  baseURL,
		client:   deps.HTTPClient,
		lookPath: deps.LookPath,
		runner:   deps.Runner,
		logger: deps.Logger.With().
			Str("backend", "elevenlabs").
			Str("voice_id", d.VoiceID).
			Logger(),
	}
}

func (e *ElevenLabs) Name() string {
	return "ElevenLabs (" + e.desc.VoiceID + ")"
}

// Initialize finds an audio player and checks the api key against the subscription
// endpoint. A rejected key fails initialization, an unreachable endpoint does not.
func (e *ElevenLabs) Initialize(ctx context.Context) error {
	if e.desc.APIKey == "" {
		return errors.Wrap(ErrInvalidCredential, "api key is empty")
	}
	if e.desc.VoiceID == "" {
		return errors.New("voice id is empty")
	}

	if e.player == nil {
		player, err := FindPlayer(e.desc.Player, e.lookPath, e.runner, e.logger)
		if err != nil {
			return err
		}
		e.logger.Debug().Str("player", player.Path()).Msg("using audio player")
		e.player = player
	}

	switch e.desc.Transport {
	case settings.TransportWebsocket:
		e.synth = &streamSynthesizer{e: e}
	case settings.TransportHTTP, "":
		e.synth = &httpSynthesizer{e: e}
	default:
		return errors.Errorf("unknown transport %q", e.desc.Transport)
	}

	e.subscription = e.checkSubscription(ctx)
	switch s := e.subscription.(type) {
	case SubscriptionUnauthorized:
		return errors.Wrapf(ErrInvalidCredential, "subscription check returned %d", s.StatusCode)
	case SubscriptionKnown:
		e.logger.Info().
			Str("tier", s.Tier).
			Int("characters_remaining", s.Remaining()).
			Msg("ElevenLabs account verified")
	case SubscriptionUnknown:
		e.logger.Warn().Err(s.Err).Msg("could not verify ElevenLabs account")
	}

	return nil
}

// Subscription is the result of the last account check, nil before Initialize.
func (e *ElevenLabs) Subscription() Subscription {
	return e.subscription
}

// SetPlayer replaces the audio player found during Initialize.
func (e *ElevenLabs) SetPlayer(p Player) {
	e.player = p
}

func (e *ElevenLabs) Speak(ctx context.Context, text string) error {
	if e.synth == nil || e.player == nil {
		return ErrNotReady
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
		cancel()
	}()

	audio, err := e.synth.synthesize(ctx, text)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil
		}
		return err
	}

	return e.player.Play(ctx, audio)
}

func (e *ElevenLabs) Stop() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	if e.player != nil {
		e.player.Stop()
	}
}

func (e *ElevenLabs) Close() error {
	e.Stop()
	return nil
}

type ttsRequest struct {
	Text          string `json:"text"`
	ModelID       string `json:"model_id,omitempty"`
	VoiceSettings Tuning `json:"voice_settings"`
}

type httpSynthesizer struct {
	e *ElevenLabs
}

func (h *httpSynthesizer) synthesize(ctx context.Context, text string) ([]byte, error) {
	e := h.e
	body, err := sonic.Marshal(ttsRequest{
		Text:          text,
		ModelID:       e.desc.ModelID,
		VoiceSettings: e.desc.Tuning,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not encode speech request")
	}

	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(e.desc.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "could not build speech request")
	}
	req.Header.Set("xi-api-key", e.desc.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "speech request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, errors.Wrapf(ErrInvalidCredential, "speech request returned %d", resp.StatusCode)
		}
		return nil, errors.Errorf("speech request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "could not read audio")
	}
	return audio, nil
}
