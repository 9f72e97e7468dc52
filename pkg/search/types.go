package search

import (
	"net/http"
	"net/url"

	"github.com/beeper/livelink-bridge/pkg/render"
)

// Format is the requested output format.
type Format string

const (
	FormatXML  Format = "xml"
	FormatHTML Format = "html"
)

// SearchRequest is a validated inbound search. It is never modified after
// ParseRequest returns it.
type SearchRequest struct {
	QueryText       string `param:"query" validate:"required"`
	BackendURL      string `param:"livelinkUrl" validate:"required,http_url"`
	UseSSO          bool   `param:"useSSO"`
	TargetAppID     string `param:"targetAppID" validate:"required_if=UseSSO false"`
	LoginPattern    string `param:"loginPattern" validate:"required_if=UseSSO false"`
	IgnoreTLSErrors bool   `param:"ignoreSSLWarnings"`
	StartIndex      int    `param:"startIndex" validate:"gte=0"`
	PageSize        int    `param:"count" validate:"gte=0"`
	ExtraParams     string `param:"extraParams"`
	// MaxSummaryLength <= 0 means unlimited.
	MaxSummaryLength   int    `param:"maxSummaryLength"`
	InputEncoding      string `param:"inputEncoding" validate:"omitempty,oneof=ASCII UTF-8"`
	OutputEncoding     string `param:"outputEncoding" validate:"omitempty,oneof=ASCII UTF-8"`
	Language           string `param:"language"`
	Format             Format `param:"format" validate:"oneof=xml html"`
	ReportErrorsAsHits bool   `param:"reportErrorAsHit"`

	// CallerIdentity is the login of the person searching, from the identity header.
	CallerIdentity string `param:"-"`
	// ImpersonatedUser is set only when UseSSO is false.
	ImpersonatedUser string `param:"-"`
}

// Encoding returns the render encoding for the response.
func (r *SearchRequest) Encoding() render.Encoding {
	if r.OutputEncoding == string(render.EncodingASCII) {
		return render.EncodingASCII
	}
	return render.EncodingUTF8
}

// Inbound is one inbound search call.
type Inbound struct {
	Query  url.Values
	Header http.Header
	// URL is the absolute request URL, used for paging and descriptor links.
	URL       *url.URL
	RequestID string
}

// Response is a fully buffered outbound response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
