package livelink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/beeper/livelink-bridge/pkg/llerrors"
	"github.com/beeper/livelink-bridge/pkg/shared/httputil"
)

const (
	DefaultUserAgent        = "LivelinkOpenSearchBridge/1.0"
	DefaultTimeout          = 30 * time.Second
	DefaultMaxResponseBytes = 16 << 20

	funcLogin         = "ll.login"
	funcWorkspace     = "llworkspace"
	loginDrainLimit   = 64 << 10
	clientTimeLayout  = "2006/1/2:15:4:5"
	formContentType   = "application/x-www-form-urlencoded; charset=utf-8"
	acceptXMLResponse = "text/xml, application/xml;q=0.9, */*;q=0.1"
)

// ErrNotAuthenticated is returned when a query is attempted before SSO is
// enabled or Authenticate has succeeded.
var ErrNotAuthenticated = errors.New("livelink client is not authenticated")

// ClientConfig configures one Client. A Client serves a single orchestration
// run and is discarded afterwards.
type ClientConfig struct {
	BaseURL         string
	UserAgent       string
	Timeout         time.Duration
	IgnoreTLSErrors bool
	// SSO forwards AmbientHeaders on every request instead of logging in.
	SSO            bool
	AmbientHeaders http.Header
	// MaxResponseBytes caps how much of a query response is read.
	MaxResponseBytes int64
	// Now is used for the login timestamp; defaults to time.Now.
	Now func() time.Time
}

// Client talks to a Livelink server through one cookie store.
type Client struct {
	cfg           ClientConfig
	baseURL       *url.URL
	http          *http.Client
	authenticated bool
}

// NewClient validates cfg and creates a client with a fresh cookie store.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, llerrors.Validation("invalid livelinkUrl: %v", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" || baseURL.Host == "" {
		return nil, llerrors.Validation("livelinkUrl must be an absolute http or https URL")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	httpClient, err := httputil.NewClient(httputil.ClientOptions{
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: cfg.IgnoreTLSErrors,
	})
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, baseURL: baseURL, http: httpClient}, nil
}

// Ready reports whether the client may issue queries.
func (c *Client) Ready() bool {
	return c.cfg.SSO || c.authenticated
}

// Authenticate posts the login form and requires a session cookie in return.
// cred is wiped before Authenticate returns, whatever the outcome.
func (c *Client) Authenticate(ctx context.Context, cred *Credential) error {
	defer cred.Wipe()
	if cred.Wiped() {
		return llerrors.Authentication("no credentials supplied", nil)
	}

	body, err := c.loginForm(cred)
	if err != nil {
		return llerrors.Authentication("could not encode login form", err)
	}
	defer clear(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String(), bytes.NewReader(body))
	if err != nil {
		return llerrors.Authentication("could not create login request", err)
	}
	req.Header.Set("Content-Type", formContentType)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return llerrors.Authentication("login request failed", redactURLError(err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, loginDrainLimit))

	if resp.StatusCode != http.StatusOK {
		return llerrors.Authentication(fmt.Sprintf("login returned HTTP %d", resp.StatusCode), nil)
	}
	if len(c.http.Jar.Cookies(c.baseURL)) == 0 && len(resp.Cookies()) == 0 {
		return llerrors.Authentication("login did not return a session cookie", nil)
	}
	c.authenticated = true
	return nil
}

// ExecuteQuery fetches baseURL?queryString and returns the response body.
// The caller must close the returned reader.
func (c *Client) ExecuteQuery(ctx context.Context, queryString string) (io.ReadCloser, error) {
	if !c.Ready() {
		return nil, &llerrors.Error{Kind: llerrors.KindInternal, Message: ErrNotAuthenticated.Error(), Err: ErrNotAuthenticated}
	}
	targetURL := c.QueryURL(queryString)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, llerrors.Transport(0, targetURL, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", acceptXMLResponse)
	if c.cfg.SSO {
		httputil.ForwardHeaders(req.Header, c.cfg.AmbientHeaders, headerNames(c.cfg.AmbientHeaders))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, llerrors.Transport(0, targetURL, redactURLError(err))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, llerrors.Transport(resp.StatusCode, targetURL, nil)
	}
	return &limitedBody{
		Reader: io.LimitReader(resp.Body, c.cfg.MaxResponseBytes),
		Closer: resp.Body,
	}, nil
}

// QueryURL joins the base URL and a query string.
func (c *Client) QueryURL(queryString string) string {
	return c.baseURL.String() + "?" + strings.TrimPrefix(queryString, "?")
}

func (c *Client) loginForm(cred *Credential) ([]byte, error) {
	encoder := unicode.UTF8.NewEncoder()
	username, err := encoder.Bytes(cred.username)
	if err != nil {
		return nil, err
	}
	defer clear(username)
	password, err := encoder.Bytes(cred.password)
	if err != nil {
		return nil, err
	}
	defer clear(password)

	nextURL := c.baseURL.Path + "?" + ParamFunc + "=" + funcWorkspace
	body := make([]byte, 0, 128+3*(len(username)+len(password)))
	body = appendField(body, ParamFunc, []byte(funcLogin))
	body = appendField(body, "CurrentClientTime", []byte("D/"+c.cfg.Now().Format(clientTimeLayout)))
	body = appendField(body, "NextURL", []byte(nextURL))
	body = appendField(body, "Username", username)
	body = appendField(body, "Password", password)
	return body, nil
}

func appendField(dst []byte, name string, value []byte) []byte {
	if len(dst) > 0 {
		dst = append(dst, '&')
	}
	dst = appendFormEscaped(dst, []byte(name))
	dst = append(dst, '=')
	return appendFormEscaped(dst, value)
}

// appendFormEscaped is url.QueryEscape over bytes, so secrets never become
// immutable strings.
func appendFormEscaped(dst, src []byte) []byte {
	const hex = "0123456789ABCDEF"
	for _, b := range src {
		switch {
		case 'a' <= b && b <= 'z', 'A' <= b && b <= 'Z', '0' <= b && b <= '9',
			b == '-', b == '_', b == '.', b == '~':
			dst = append(dst, b)
		case b == ' ':
			dst = append(dst, '+')
		default:
			dst = append(dst, '%', hex[b>>4], hex[b&0x0f])
		}
	}
	return dst
}

func headerNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	return names
}

// redactURLError strips the request URL from *url.Error; the transport error
// already carries the target separately.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

type limitedBody struct {
	io.Reader
	io.Closer
}
