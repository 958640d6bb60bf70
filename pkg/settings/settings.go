package settings

import (
	"os"
	"strings"
	"time"

	"github.com/go-go-golems/jarvis/pkg/security"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type LLMSettings struct {
	APIBase        string        `yaml:"api_base" mapstructure:"api_base"`
	APIKey         string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Model          string        `yaml:"model" mapstructure:"model"`
	MaxTokens      int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature    float64       `yaml:"temperature" mapstructure:"temperature"`
	ContextLimit   int           `yaml:"context_limit" mapstructure:"context_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	// SystemPrompt replaces the built-in persona when set.
	SystemPrompt   string  `yaml:"system_prompt,omitempty" mapstructure:"system_prompt"`
	TrimThreshold  float64 `yaml:"trim_threshold" mapstructure:"trim_threshold"`
	TrimDivisor    int     `yaml:"trim_divisor" mapstructure:"trim_divisor"`
	TokenEstimator string  `yaml:"token_estimator" mapstructure:"token_estimator"`
}

type VoiceOutputSettings struct {
	Engine          string  `yaml:"engine" mapstructure:"engine"`
	VoiceID         string  `yaml:"voice_id" mapstructure:"voice_id"`
	Model           string  `yaml:"model" mapstructure:"model"`
	APIKey          string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Stability       float64 `yaml:"stability" mapstructure:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost" mapstructure:"similarity_boost"`
	Style           float64 `yaml:"style" mapstructure:"style"`
	UseSpeakerBoost bool    `yaml:"use_speaker_boost" mapstructure:"use_speaker_boost"`
	// Transport is "http" (one request per utterance) or "websocket" (stream-input API).
	Transport  string `yaml:"transport" mapstructure:"transport"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	MacOSVoice string `yaml:"macos_voice" mapstructure:"macos_voice"`
	Rate       int    `yaml:"rate" mapstructure:"rate"`
	// Player overrides the audio player binary used for remote synthesis.
	Player string `yaml:"player,omitempty" mapstructure:"player"`
}

type VoiceInputSettings struct {
	Prompt string `yaml:"prompt" mapstructure:"prompt"`
}

type Settings struct {
	LLM         *LLMSettings         `yaml:"llm" mapstructure:"llm"`
	VoiceOutput *VoiceOutputSettings `yaml:"voice_output" mapstructure:"voice_output"`
	VoiceInput  *VoiceInputSettings  `yaml:"voice_input" mapstructure:"voice_input"`
}

const (
	EngineElevenLabs = "elevenlabs"
	EngineMacOS      = "macos"

	TransportHTTP      = "http"
	TransportWebsocket = "websocket"
)

// NewSettings returns the built-in defaults.
func NewSettings() *Settings {
	return &Settings{
		LLM: &LLMSettings{
			APIBase:        "http://localhost:1234/v1",
			Model:          "auto",
			MaxTokens:      2048,
			Temperature:    0.7,
			ContextLimit:   32000,
			RequestTimeout: 120 * time.Second,
			ProbeTimeout:   5 * time.Second,
			TrimThreshold:  85,
			TrimDivisor:    5,
			TokenEstimator: "heuristic",
		},
		VoiceOutput: &VoiceOutputSettings{
			Engine:          EngineElevenLabs,
			Model:           "eleven_monolingual_v1",
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0,
			UseSpeakerBoost: true,
			Transport:       TransportHTTP,
			BaseURL:         "https://api.elevenlabs.io",
			MacOSVoice:      "Samantha",
			Rate:            180,
		},
		VoiceInput: &VoiceInputSettings{
			Prompt: "You",
		},
	}
}

// SetDefaults registers every known key with v, so that env overrides and
// partially filled config files resolve to complete settings.
func SetDefaults(v *viper.Viper) {
	d := NewSettings()

	v.SetDefault("llm.api_base", d.LLM.APIBase)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.context_limit", d.LLM.ContextLimit)
	v.SetDefault("llm.request_timeout", d.LLM.RequestTimeout)
	v.SetDefault("llm.probe_timeout", d.LLM.ProbeTimeout)
	v.SetDefault("llm.system_prompt", d.LLM.SystemPrompt)
	v.SetDefault("llm.trim_threshold", d.LLM.TrimThreshold)
	v.SetDefault("llm.trim_divisor", d.LLM.TrimDivisor)
	v.SetDefault("llm.token_estimator", d.LLM.TokenEstimator)

	v.SetDefault("voice_output.engine", d.VoiceOutput.Engine)
	v.SetDefault("voice_output.voice_id", d.VoiceOutput.VoiceID)
	v.SetDefault("voice_output.model", d.VoiceOutput.Model)
	v.SetDefault("voice_output.api_key", d.VoiceOutput.APIKey)
	v.SetDefault("voice_output.stability", d.VoiceOutput.Stability)
	v.SetDefault("voice_output.similarity_boost", d.VoiceOutput.SimilarityBoost)
	v.SetDefault("voice_output.style", d.VoiceOutput.Style)
	v.SetDefault("voice_output.use_speaker_boost", d.VoiceOutput.UseSpeakerBoost)
	v.SetDefault("voice_output.transport", d.VoiceOutput.Transport)
	v.SetDefault("voice_output.base_url", d.VoiceOutput.BaseURL)
	v.SetDefault("voice_output.macos_voice", d.VoiceOutput.MacOSVoice)
	v.SetDefault("voice_output.rate", d.VoiceOutput.Rate)
	v.SetDefault("voice_output.player", d.VoiceOutput.Player)

	v.SetDefault("voice_input.prompt", d.VoiceInput.Prompt)
}

// NewViper returns a viper instance reading JARVIS_* environment variables,
// e.g. JARVIS_LLM_API_BASE for llm.api_base.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("jarvis")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := BindEnv(v); err != nil {
		return nil, err
	}
	SetDefaults(v)
	return v, nil
}

// BindEnv wires the environment variables that are recognized outside the JARVIS_ prefix.
func BindEnv(v *viper.Viper) error {
	err := v.BindEnv("voice_output.api_key", "JARVIS_VOICE_OUTPUT_API_KEY", "ELEVENLABS_API_KEY")
	if err != nil {
		return errors.Wrap(err, "could not bind voice_output.api_key")
	}
	return nil
}

// ReadConfigFile merges path into v. A missing file is not an error: every option has a default.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "could not stat config file %s", path)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "could not read config file %s", path)
	}
	return nil
}

// ReadConfig reads explicit when set. Otherwise jarvis.yaml is searched in the current
// directory, ./config, $HOME/.jarvis and the user config directory; finding none is fine.
func ReadConfig(v *viper.Viper, explicit string) error {
	if explicit != "" {
		return ReadConfigFile(v, explicit)
	}

	v.SetConfigName("jarvis")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.jarvis")
	if xdgConfigPath, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(xdgConfigPath + "/jarvis")
	}

	err := v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "could not read config")
	}
	return nil
}

// Load decodes the settings held by v on top of the defaults.
func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	s := NewSettings()
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	// a section present but empty in YAML decodes to nil
	d := NewSettings()
	if s.LLM == nil {
		s.LLM = d.LLM
	}
	if s.VoiceOutput == nil {
		s.VoiceOutput = d.VoiceOutput
	}
	if s.VoiceInput == nil {
		s.VoiceInput = d.VoiceInput
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if s.LLM.ContextLimit <= 0 {
		return errors.Errorf("llm.context_limit must be positive, got %d", s.LLM.ContextLimit)
	}
	if s.LLM.TrimDivisor <= 0 {
		return errors.Errorf("llm.trim_divisor must be positive, got %d", s.LLM.TrimDivisor)
	}
	if _, err := security.ValidateEndpointURL(s.LLM.APIBase, security.LocalModelServer); err != nil {
		return errors.Wrap(err, "llm.api_base")
	}
	if _, err := security.ValidateEndpointURL(s.VoiceOutput.BaseURL, security.HostedService); err != nil {
		return errors.Wrap(err, "voice_output.base_url")
	}
	switch s.VoiceOutput.Transport {
	case TransportHTTP, TransportWebsocket:
	default:
		return errors.Errorf("unknown voice_output.transport %q", s.VoiceOutput.Transport)
	}
	return nil
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// Redacted returns a copy with credentials masked, for printing.
func (s *Settings) Redacted() *Settings {
	ret := s.Clone()
	ret.LLM.APIKey = mask(ret.LLM.APIKey)
	ret.VoiceOutput.APIKey = mask(ret.VoiceOutput.APIKey)
	return ret
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
