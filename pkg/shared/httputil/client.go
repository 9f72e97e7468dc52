package httputil

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
)

// ClientOptions configures a backend HTTP client.
type ClientOptions struct {
	Timeout time.Duration
	// InsecureSkipVerify disables certificate validation for this client only.
	InsecureSkipVerify bool
	// Jar is shared by every request made through the client. A fresh jar is
	// created when nil.
	Jar http.CookieJar
}

// NewCookieJar creates an empty cookie store keyed by host.
func NewCookieJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return jar, nil
}

// NewClient builds an *http.Client with its own transport, so TLS settings
// never leak into other clients or http.DefaultTransport.
func NewClient(opts ClientOptions) (*http.Client, error) {
	jar := opts.Jar
	if jar == nil {
		var err error
		if jar, err = NewCookieJar(); err != nil {
			return nil, err
		}
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // explicit per-request opt-in
		}
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		Jar:       jar,
	}, nil
}
