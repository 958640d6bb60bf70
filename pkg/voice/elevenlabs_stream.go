package voice

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	streamHandshakeTimeout = 10 * time.Second
	streamWriteTimeout     = 10 * time.Second
	streamOutputFormat     = "mp3_44100_128"
)

type streamStartMessage struct {
	Text          string `json:"text"`
	VoiceSettings Tuning `json:"voice_settings"`
}

type streamTextMessage struct {
	Text string `json:"text"`
}

type streamServerMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// streamSynthesizer uses the stream-input websocket API. One connection is opened per
// utterance: a start message with the voice settings, the text, then an empty text that
// ends the input. Audio arrives as base64 chunks until isFinal.
type streamSynthesizer struct {
	e *ElevenLabs
}

func (s *streamSynthesizer) endpoint() (string, error) {
	u, err := url.Parse(s.e.baseURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid base url %q", s.e.baseURL)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/text-to-speech/" + url.PathEscape(s.e.desc.VoiceID) + "/stream-input"

	q := url.Values{}
	if s.e.desc.ModelID != "" {
		q.Set("model_id", s.e.desc.ModelID)
	}
	q.Set("output_format", streamOutputFormat)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (s *streamSynthesizer) synthesize(ctx context.Context, text string) ([]byte, error) {
	endpoint, err := s.endpoint()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: streamHandshakeTimeout,
	}
	headers := http.Header{}
	headers.Set("xi-api-key", s.e.desc.APIKey)

	conn, resp, err := dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, errors.Wrapf(ErrInvalidCredential, "stream handshake returned %d", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "could not open speech stream")
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	messages := []interface{}{
		streamStartMessage{Text: " ", VoiceSettings: s.e.desc.Tuning},
		streamTextMessage{Text: text + " "},
		streamTextMessage{Text: ""},
	}
	for _, m := range messages {
		if err := writeStreamMessage(conn, m); err != nil {
			return nil, err
		}
	}

	var audio []byte
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(audio) > 0 {
				return audio, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Wrap(err, "speech stream broke off")
		}

		var msg streamServerMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			s.e.logger.Debug().Err(err).Msg("skipping unreadable stream message")
			continue
		}
		if msg.Error != "" {
			return nil, errors.Errorf("speech stream error: %s %s (code %d)", msg.Error, msg.Message, msg.Code)
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return nil, errors.Wrap(err, "could not decode audio chunk")
			}
			audio = append(audio, chunk...)
		}
		if msg.IsFinal {
			return audio, nil
		}
	}
}

func writeStreamMessage(conn *websocket.Conn, msg interface{}) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "could not encode stream message")
	}
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return errors.Wrap(err, "could not set write deadline")
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(err, "could not write to speech stream")
	}
	return nil
}
