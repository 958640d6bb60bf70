package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// EndpointOptions configures which service endpoints are acceptable.
type EndpointOptions struct {
	// AllowHTTP permits plain HTTP URLs. HTTPS is always allowed.
	AllowHTTP bool
	// AllowLocalNetworks permits loopback/private/link-local IP targets and localhost hostnames.
	AllowLocalNetworks bool
}

var (
	// LocalModelServer accepts a model server on this machine or the LAN (LM Studio, ollama, llama.cpp).
	LocalModelServer = EndpointOptions{AllowHTTP: true, AllowLocalNetworks: true}
	// HostedService requires HTTPS to a public host.
	HostedService = EndpointOptions{}
)

// ValidateEndpointURL parses rawURL and checks it against opts.
// IP literals are checked without DNS lookups; hostnames other than localhost variants pass.
func ValidateEndpointURL(rawURL string, opts EndpointOptions) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid endpoint %q", rawURL)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !opts.AllowHTTP {
			return nil, errors.Errorf("endpoint %q must use https", rawURL)
		}
	default:
		return nil, errors.Errorf("endpoint %q has unsupported scheme %q", rawURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, errors.Errorf("endpoint %q has no host", rawURL)
	}

	if !opts.AllowLocalNetworks {
		if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
			return nil, errors.Errorf("endpoint %q points at local host %q", rawURL, host)
		}
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return u, nil
	}
	if addr.Zone() != "" && !opts.AllowLocalNetworks {
		return nil, errors.Errorf("endpoint %q uses zoned address %q", rawURL, host)
	}
	addr = addr.Unmap()

	// no server can be reached at these, local or not
	if addr.IsUnspecified() || addr.IsMulticast() {
		return nil, errors.Errorf("endpoint %q has unusable address %q", rawURL, host)
	}

	if !opts.AllowLocalNetworks {
		if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
			return nil, errors.Errorf("endpoint %q points at non-public address %q", rawURL, host)
		}
	}

	return u, nil
}
