package search

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beeper/livelink-bridge/pkg/llerrors"
	"github.com/beeper/livelink-bridge/pkg/render"
)

func identityHeader(identity string) http.Header {
	h := http.Header{}
	if identity != "" {
		h.Set(DefaultIdentityHeader, identity)
	}
	return h
}

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return values
}

const validExplicit = "query=budget&livelinkUrl=https%3A%2F%2Fll.example.com%2Flivelink%2Flivelink.exe&targetAppID=intranet&loginPattern=%7Buser%7D"

func TestParseRequestExplicitCredentials(t *testing.T) {
	values := mustQuery(t, validExplicit+"&startIndex=10&count=5&format=HTML&outputEncoding=ascii&extraParams=%26lookfor1%3Dallwords")
	req, err := ParseRequest(values, identityHeader(`CORP\jdoe`), nil)
	require.NoError(t, err)

	assert.Equal(t, "budget", req.QueryText)
	assert.Equal(t, "https://ll.example.com/livelink/livelink.exe", req.BackendURL)
	assert.False(t, req.UseSSO)
	assert.Equal(t, `CORP\jdoe`, req.CallerIdentity)
	assert.Equal(t, "jdoe", req.ImpersonatedUser)
	assert.Equal(t, 10, req.StartIndex)
	assert.Equal(t, 5, req.PageSize)
	assert.Equal(t, FormatHTML, req.Format)
	assert.Equal(t, render.EncodingASCII, req.Encoding())
	assert.Equal(t, DefaultMaxSummaryLength, req.MaxSummaryLength)
	assert.Equal(t, "lookfor1=allwords", req.ExtraParams)
}

func TestParseRequestSSO(t *testing.T) {
	values := mustQuery(t, "QUERY=memo&LivelinkUrl=http%3A%2F%2Fll%2Flivelink.exe&useSSO=1&maxSummaryLength=-1")
	req, err := ParseRequest(values, http.Header{}, nil)
	require.NoError(t, err)
	assert.True(t, req.UseSSO)
	assert.Empty(t, req.ImpersonatedUser)
	assert.Equal(t, "memo", req.QueryText)
	assert.Equal(t, FormatXML, req.Format)
	assert.Equal(t, render.EncodingUTF8, req.Encoding())
	assert.Equal(t, -1, req.MaxSummaryLength)
}

func TestParseRequestValidation(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		identity string
		message  string
	}{
		{"missing query", "livelinkUrl=http%3A%2F%2Fll%2Fx&useSSO=true", "", "query is required"},
		{"missing url", "query=a&useSSO=true", "", "livelinkUrl is required"},
		{"malformed url", "query=a&livelinkUrl=not+a+url&useSSO=true", "", "livelinkUrl must be an absolute http or https URL"},
		{"ftp url", "query=a&livelinkUrl=ftp%3A%2F%2Fll%2Fx&useSSO=true", "", "livelinkUrl must be an absolute http or https URL"},
		{"bad encoding", "query=a&livelinkUrl=http%3A%2F%2Fll%2Fx&useSSO=true&outputEncoding=latin1", "", "outputEncoding must be one of ASCII, UTF-8"},
		{"bad input encoding", "query=a&livelinkUrl=http%3A%2F%2Fll%2Fx&useSSO=true&inputEncoding=utf-16", "", "inputEncoding must be one of ASCII, UTF-8"},
		{"negative start", "query=a&livelinkUrl=http%3A%2F%2Fll%2Fx&useSSO=true&startIndex=-1", "", "startIndex must not be negative"},
		{"non-numeric count", "query=a&livelinkUrl=http%3A%2F%2Fll%2Fx&useSSO=true&count=ten", "", "count must be an integer"},
		{"bad bool", "query=a&livelinkUrl=http%3A%2F%2Fll%2Fx&useSSO=maybe", "", "useSSO must be a boolean"},
		{"bad format", "query=a&livelinkUrl=http%3A%2F%2Fll%2Fx&useSSO=true&format=json", "", "format must be one of xml, html"},
		{"missing app id", "query=a&livelinkUrl=http%3A%2F%2Fll%2Fx&loginPattern=%7Buser%7D", "jdoe", "targetAppID is required"},
		{"missing pattern", "query=a&livelinkUrl=http%3A%2F%2Fll%2Fx&targetAppID=app", "jdoe", "loginPattern is required"},
		{"missing identity", validExplicit, "", "caller identity is missing: the X-Remote-User header is required when useSSO is false"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRequest(mustQuery(t, tc.raw), identityHeader(tc.identity), nil)
			require.Error(t, err)
			assert.Equal(t, llerrors.KindValidation, llerrors.KindOf(err))
			assert.Equal(t, tc.message, llerrors.PublicMessage(err))
		})
	}
}

func TestParseRequestIgnoreTLSGate(t *testing.T) {
	values := mustQuery(t, "query=a&livelinkUrl=https%3A%2F%2Fll%2Fx&useSSO=true&ignoreSSLWarnings=true")
	req, err := ParseRequest(values, nil, nil)
	require.NoError(t, err)
	assert.True(t, req.IgnoreTLSErrors)

	deny := false
	_, err = ParseRequest(values, nil, &Config{Backend: BackendConfig{AllowIgnoreTLS: &deny}})
	assert.Equal(t, llerrors.KindValidation, llerrors.KindOf(err))
}

func TestChoosePresentation(t *testing.T) {
	cases := map[string]Presentation{
		"":                                  PresentStatus,
		"format=xml":                        PresentStatus,
		"reportErrorAsHit=true":             PresentHit,
		"format=xml&reportErrorAsHit=1":     PresentHit,
		"format=HTML":                       PresentHTML,
		"format=html&reportErrorAsHit=true": PresentHTML,
		"reportErrorAsHit=bogus":            PresentStatus,
		"format=json&reportErrorAsHit=true": PresentHit,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ChoosePresentation(mustQuery(t, raw)), raw)
	}
}
