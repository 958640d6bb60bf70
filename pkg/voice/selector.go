package voice

import (
	"github.com/go-go-golems/jarvis/pkg/settings"
)

// HostCapabilities describes what the machine can do without network help.
type HostCapabilities struct {
	NativeSpeech bool
}

type selectionRule struct {
	name    string
	matches func(s *settings.VoiceOutputSettings, caps HostCapabilities) bool
	build   func(s *settings.VoiceOutputSettings) Descriptor
}

func hasRemoteCredentials(s *settings.VoiceOutputSettings, _ HostCapabilities) bool {
	return s.VoiceID != "" && s.APIKey != ""
}

func nativeRequested(s *settings.VoiceOutputSettings, caps HostCapabilities) bool {
	return caps.NativeSpeech && s.Engine == settings.EngineMacOS
}

func nativeAvailable(_ *settings.VoiceOutputSettings, caps HostCapabilities) bool {
	return caps.NativeSpeech
}

func buildRemote(s *settings.VoiceOutputSettings) Descriptor { return remoteFromSettings(s) }
func buildNative(s *settings.VoiceOutputSettings) Descriptor { return nativeFromSettings(s) }

// selectionRules are evaluated top to bottom, the first match wins.
var selectionRules = []selectionRule{
	{"remote-credentials", hasRemoteCredentials, buildRemote},
	{"native-requested", nativeRequested, buildNative},
	{"remote-fallback", hasRemoteCredentials, buildRemote},
	{"native-available", nativeAvailable, buildNative},
}

// Selection is the outcome of Select, with the rule that produced it.
type Selection struct {
	Descriptor Descriptor
	Rule       string
}

// Select chooses exactly one backend descriptor, or returns ErrNoBackend.
func Select(s *settings.VoiceOutputSettings, caps HostCapabilities) (Selection, error) {
	if s == nil {
		s = settings.NewSettings().VoiceOutput
	}
	for _, rule := range selectionRules {
		if rule.matches(s, caps) {
			return Selection{Descriptor: rule.build(s), Rule: rule.name}, nil
		}
	}
	return Selection{}, ErrNoBackend
}
