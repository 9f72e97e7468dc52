// Package loginmap turns a caller identity into the backend login name used
// for impersonation.
package loginmap

import (
	"regexp"
	"strings"

	"github.com/beeper/livelink-bridge/pkg/llerrors"
)

var placeholderRE = regexp.MustCompile(`(?i)\{(user|domain|identity)\}`)

// Identity is a caller identity split into its parts.
type Identity struct {
	Raw    string
	User   string
	Domain string
}

// ParseIdentity accepts DOMAIN\user, user@domain or a bare user name.
func ParseIdentity(raw string) Identity {
	raw = strings.TrimSpace(raw)
	id := Identity{Raw: raw, User: raw}
	if domain, user, ok := strings.Cut(raw, `\`); ok {
		id.Domain, id.User = domain, user
	} else if user, domain, ok := strings.Cut(raw, "@"); ok {
		id.User, id.Domain = user, domain
	}
	return id
}

// Map expands {user}, {domain} and {identity} in pattern. Placeholders are
// matched case-insensitively; a pattern without placeholders is returned as is.
func Map(pattern, identity string) (string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", llerrors.Validation("loginPattern is empty")
	}
	id := ParseIdentity(identity)
	if id.User == "" {
		return "", llerrors.Validation("caller identity is empty")
	}
	login := placeholderRE.ReplaceAllStringFunc(pattern, func(match string) string {
		switch strings.ToLower(match) {
		case "{user}":
			return id.User
		case "{domain}":
			return id.Domain
		default:
			return id.Raw
		}
	})
	if login = strings.TrimSpace(login); login == "" {
		return "", llerrors.Validation("loginPattern %q produced an empty login for %q", pattern, id.Raw)
	}
	return login, nil
}
