package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalModelServerAcceptsLMStudioDefault(t *testing.T) {
	u, err := ValidateEndpointURL("http://localhost:1234/v1", LocalModelServer)
	require.NoError(t, err)
	assert.Equal(t, "/v1", u.Path)

	_, err = ValidateEndpointURL("http://192.168.1.20:11434/v1", LocalModelServer)
	assert.NoError(t, err)
}

func TestEndpointRejectsBadSchemesAndHosts(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "localhost:1234", "http:///v1", "::"} {
		_, err := ValidateEndpointURL(raw, LocalModelServer)
		assert.Error(t, err, raw)
	}
}

func TestHostedServiceRequiresHTTPS(t *testing.T) {
	_, err := ValidateEndpointURL("http://api.elevenlabs.io", HostedService)
	assert.Error(t, err)

	_, err = ValidateEndpointURL("https://api.elevenlabs.io", HostedService)
	assert.NoError(t, err)
}

func TestHostedServiceRejectsLocalTargets(t *testing.T) {
	for _, raw := range []string{
		"https://localhost",
		"https://speech.local",
		"https://127.0.0.1",
		"https://10.0.0.4",
		"https://[fe80::1%25eth0]/",
		"https://[::ffff:192.168.0.1]/",
	} {
		_, err := ValidateEndpointURL(raw, HostedService)
		assert.Error(t, err, raw)
	}
}

func TestLocalModelServerRejectsUnusableAddresses(t *testing.T) {
	for _, raw := range []string{
		"http://0.0.0.0:1234/v1",
		"http://[::]:1234/v1",
		"http://224.0.0.251:1234/v1",
		"http://[::ffff:0.0.0.0]:1234/v1",
	} {
		_, err := ValidateEndpointURL(raw, LocalModelServer)
		assert.Error(t, err, raw)
	}

	_, err := ValidateEndpointURL("http://127.0.0.1:1234/v1", LocalModelServer)
	assert.NoError(t, err)
}
