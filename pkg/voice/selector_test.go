package voice

import (
	"testing"

	"github.com/go-go-golems/jarvis/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func voiceSettings(engine, voiceID, apiKey string) *settings.VoiceOutputSettings {
	s := settings.NewSettings().VoiceOutput
	s.Engine = engine
	s.VoiceID = voiceID
	s.APIKey = apiKey
	return s
}

func TestSelectPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		engine   string
		voiceID  string
		apiKey   string
		native   bool
		expected Kind
		rule     string
	}{
		{"credentials win over native request", settings.EngineMacOS, "v1", "k1", true, KindRemoteSynthesis, "remote-credentials"},
		{"credentials without native host", settings.EngineElevenLabs, "v1", "k1", false, KindRemoteSynthesis, "remote-credentials"},
		{"native requested", settings.EngineMacOS, "", "", true, KindLocalNative, "native-requested"},
		{"native requested with partial credentials", settings.EngineMacOS, "v1", "", true, KindLocalNative, "native-requested"},
		{"native as fallback", settings.EngineElevenLabs, "", "", true, KindLocalNative, "native-available"},
		{"key without voice id falls back to native", settings.EngineElevenLabs, "", "k1", true, KindLocalNative, "native-available"},
		{"unknown engine on native host", "espeak", "", "", true, KindLocalNative, "native-available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Select(voiceSettings(tt.engine, tt.voiceID, tt.apiKey), HostCapabilities{NativeSpeech: tt.native})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sel.Descriptor.Kind())
			assert.Equal(t, tt.rule, sel.Rule)
		})
	}
}

func TestSelectNoBackend(t *testing.T) {
	tests := []struct {
		name    string
		engine  string
		voiceID string
		apiKey  string
	}{
		{"nothing configured", settings.EngineElevenLabs, "", ""},
		{"native requested on a host without it", settings.EngineMacOS, "", ""},
		{"voice id only", settings.EngineElevenLabs, "v1", ""},
		{"api key only", settings.EngineElevenLabs, "", "k1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(voiceSettings(tt.engine, tt.voiceID, tt.apiKey), HostCapabilities{})
			assert.ErrorIs(t, err, ErrNoBackend)
		})
	}
}

func TestSelectCarriesSettings(t *testing.T) {
	s := voiceSettings(settings.EngineElevenLabs, "voice-1", "key-1")
	s.Stability = 0.3
	s.Style = 0.2
	s.Transport = settings.TransportWebsocket

	sel, err := Select(s, HostCapabilities{})
	require.NoError(t, err)
	remote, ok := sel.Descriptor.(RemoteSynthesis)
	require.True(t, ok)
	assert.Equal(t, "voice-1", remote.VoiceID)
	assert.Equal(t, "key-1", remote.APIKey)
	assert.Equal(t, "eleven_monolingual_v1", remote.ModelID)
	assert.Equal(t, Tuning{Stability: 0.3, SimilarityBoost: 0.75, Style: 0.2, UseSpeakerBoost: true}, remote.Tuning)
	assert.Equal(t, settings.TransportWebsocket, remote.Transport)

	s = voiceSettings(settings.EngineMacOS, "", "")
	s.MacOSVoice = "Daniel"
	s.Rate = 200
	sel, err = Select(s, HostCapabilities{NativeSpeech: true})
	require.NoError(t, err)
	assert.Equal(t, LocalNative{VoiceName: "Daniel", Rate: 200}, sel.Descriptor)
}

func TestSelectNilSettingsUsesDefaults(t *testing.T) {
	_, err := Select(nil, HostCapabilities{})
	assert.ErrorIs(t, err, ErrNoBackend)

	sel, err := Select(nil, HostCapabilities{NativeSpeech: true})
	require.NoError(t, err)
	assert.Equal(t, KindLocalNative, sel.Descriptor.Kind())
}
