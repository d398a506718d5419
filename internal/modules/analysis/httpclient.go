package analysis

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient returns a client with an overall request timeout and a
// separate dial timeout. Redirects are followed.
func NewHTTPClient(requestTimeout, connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	return &http.Client{Timeout: requestTimeout, Transport: transport}
}
