// Package voice speaks assistant replies through one of two synthesis backends: the
// ElevenLabs API or the host's native speech engine.
//
// Select picks a Descriptor from configuration and host capabilities. A Voice then
// builds and initializes the backend for it and degrades to silence when anything on
// the way fails; speaking never returns an error to the caller.
package voice

import (
	"github.com/go-go-golems/jarvis/pkg/settings"
	"github.com/pkg/errors"
)

var (
	ErrNoBackend         = errors.New("no speech backend is configured for this host")
	ErrNotReady          = errors.New("voice is not ready")
	ErrInvalidCredential = errors.New("speech service rejected the api key")
	ErrNoPlayer          = errors.New("no audio player found")
	ErrNotSupported      = errors.New("native speech is not supported on this host")
)

type Kind string

const (
	KindRemoteSynthesis Kind = "remote-synthesis"
	KindLocalNative     Kind = "local-native"
)

// Descriptor names a backend and carries what is needed to build it. The only
// implementations are RemoteSynthesis and LocalNative.
type Descriptor interface {
	Kind() Kind
	isDescriptor()
}

// Tuning mirrors the ElevenLabs voice_settings object.
type Tuning struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type RemoteSynthesis struct {
	VoiceID string
	ModelID string
	APIKey  string
	Tuning  Tuning

	BaseURL   string
	Transport string
	Player    string
}

func (RemoteSynthesis) Kind() Kind   { return KindRemoteSynthesis }
func (RemoteSynthesis) isDescriptor() {}

type LocalNative struct {
	VoiceName string
	// Rate is in words per minute.
	Rate int
}

func (LocalNative) Kind() Kind   { return KindLocalNative }
func (LocalNative) isDescriptor() {}

func remoteFromSettings(s *settings.VoiceOutputSettings) RemoteSynthesis {
	return RemoteSynthesis{
		VoiceID: s.VoiceID,
		ModelID: s.Model,
		APIKey:  s.APIKey,
		Tuning: Tuning{
			Stability:       s.Stability,
			SimilarityBoost: s.SimilarityBoost,
			Style:           s.Style,
			UseSpeakerBoost: s.UseSpeakerBoost,
		},
		BaseURL:   s.BaseURL,
		Transport: s.Transport,
		Player:    s.Player,
	}
}

func nativeFromSettings(s *settings.VoiceOutputSettings) LocalNative {
	return LocalNative{
		VoiceName: s.MacOSVoice,
		Rate:      s.Rate,
	}
}
