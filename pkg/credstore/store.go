// Package credstore resolves application ids to privileged backend credentials.
package credstore

import (
	"context"
	"net"
	"os"
	"strings"

	"github.com/beeper/livelink-bridge/pkg/livelink"
	"github.com/beeper/livelink-bridge/pkg/llerrors"
)

// Store looks up the privileged account used for impersonated searches.
// Every call returns a fresh Credential owned by the caller.
type Store interface {
	// Lookup fails with a validation error when backendHost is not one of
	// the hosts the application is bound to.
	Lookup(ctx context.Context, appID, backendHost string) (*livelink.Credential, error)
}

// Entry is one configured application.
type Entry struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	PasswordEnv string `yaml:"password_env"`
	// AllowedHosts are the Livelink hosts the credentials may be sent to,
	// as "host" (any port) or "host:port". Empty allows none.
	AllowedHosts []string `yaml:"allowed_hosts"`
}

// Allows reports whether backendHost, a URL host with optional port, is
// one of the entry's allowed hosts.
func (e Entry) Allows(backendHost string) bool {
	host := strings.ToLower(strings.TrimSpace(backendHost))
	if host == "" {
		return false
	}
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	hostname = strings.Trim(hostname, "[]")
	for _, allowed := range e.AllowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if allowed == host {
			return true
		}
		if _, _, err := net.SplitHostPort(allowed); err != nil && strings.Trim(allowed, "[]") == hostname {
			return true
		}
	}
	return false
}

// Static serves credentials from configuration.
type Static struct {
	entries map[string]Entry
	getenv  func(string) string
}

// NewStatic creates a store over entries keyed by application id.
func NewStatic(entries map[string]Entry) *Static {
	normalized := make(map[string]Entry, len(entries))
	for appID, entry := range entries {
		normalized[normalizeID(appID)] = entry
	}
	return &Static{entries: normalized, getenv: os.Getenv}
}

func (s *Static) Lookup(ctx context.Context, appID, backendHost string) (*livelink.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := s.entries[normalizeID(appID)]
	if !ok {
		return nil, llerrors.Authentication("no credentials for application "+strings.TrimSpace(appID), nil)
	}
	if !entry.Allows(backendHost) {
		return nil, llerrors.Validation("livelinkUrl host %q is not allowed for application %s", backendHost, strings.TrimSpace(appID))
	}
	username := strings.TrimSpace(entry.Username)
	if username == "" {
		return nil, llerrors.Authentication("no username configured for application "+strings.TrimSpace(appID), nil)
	}
	password := []byte(entry.Password)
	if entry.PasswordEnv != "" {
		password = []byte(s.getenv(entry.PasswordEnv))
	}
	defer clear(password)
	if len(password) == 0 {
		return nil, llerrors.Authentication("no password configured for application "+strings.TrimSpace(appID), nil)
	}
	return livelink.NewCredential(username, password), nil
}

// Len reports how many applications are configured.
func (s *Static) Len() int {
	return len(s.entries)
}

func normalizeID(appID string) string {
	return strings.ToLower(strings.TrimSpace(appID))
}
