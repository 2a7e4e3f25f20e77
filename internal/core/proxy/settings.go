package proxy

import (
	"fmt"
	"net/url"
)

// Settings describes the upstream HTTP proxy the browser should use.
type Settings struct {
	Enabled  bool
	Hostname string
	Port     int
	Username string
	Password string
}

// HasProxy returns true if proxy is enabled and configured.
func (p Settings) HasProxy() bool {
	return p.Enabled && p.Hostname != "" && p.Port > 0
}

// HasCredentials returns true if the proxy needs authentication.
// Chromium cannot take proxy credentials on the command line, so these proxies go
// through a local ForwardingProxy.
func (p Settings) HasCredentials() bool {
	return p.HasProxy() && p.Username != "" && p.Password != ""
}

// HostPort returns the proxy address without credentials (e.g., "http://proxy.local:3128").
func (p Settings) HostPort() string {
	if !p.HasProxy() {
		return ""
	}
	return fmt.Sprintf("http://%s:%d", p.Hostname, p.Port)
}

// FullURL returns the proxy URL including escaped credentials, if any.
func (p Settings) FullURL() string {
	if !p.HasProxy() {
		return ""
	}
	u := url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", p.Hostname, p.Port),
	}
	if p.Username != "" && p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u.String()
}
