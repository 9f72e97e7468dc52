// Package descriptor renders the OpenSearch description document that
// advertises the bridge to federated search clients.
package descriptor

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	ContentType = "application/opensearchdescription+xml"
	Namespace   = "http://a9.com/-/spec/opensearch/1.1/"

	maxShortNameLength = 16
	templateParams     = "query={searchTerms}&startIndex={startIndex?}&count={count?}"
)

// ForwardedParams are the inbound parameters that a descriptor fixes for
// every search it advertises.
var ForwardedParams = []string{
	"livelinkUrl",
	"useSSO",
	"targetAppID",
	"loginPattern",
	"ignoreSSLWarnings",
	"extraParams",
	"maxSummaryLength",
	"inputEncoding",
	"outputEncoding",
	"language",
	"reportErrorAsHit",
}

// Options describes one advertised search.
type Options struct {
	ShortName   string
	Description string
	Contact     string
	ImageURL    string
	// SearchURL is the absolute URL of the search endpoint.
	SearchURL string
	// Params are added to both URL templates.
	Params url.Values
}

type document struct {
	XMLName        xml.Name  `xml:"OpenSearchDescription"`
	Namespace      string    `xml:"xmlns,attr"`
	ShortName      string    `xml:"ShortName"`
	Description    string    `xml:"Description"`
	Contact        string    `xml:"Contact,omitempty"`
	URLs           []urlNode `xml:"Url"`
	Image          *image    `xml:"Image,omitempty"`
	InputEncoding  string    `xml:"InputEncoding"`
	OutputEncoding string    `xml:"OutputEncoding"`
}

type urlNode struct {
	Type        string `xml:"type,attr"`
	Template    string `xml:"template,attr"`
	IndexOffset int    `xml:"indexOffset,attr"`
}

type image struct {
	Height int    `xml:"height,attr"`
	Width  int    `xml:"width,attr"`
	Type   string `xml:"type,attr,omitempty"`
	URL    string `xml:",chardata"`
}

// Render builds the descriptor document. startIndex in the templates is
// 0-based, matching the bridge's startIndex parameter.
func Render(opts Options) ([]byte, error) {
	if strings.TrimSpace(opts.SearchURL) == "" {
		return nil, fmt.Errorf("descriptor needs a search URL")
	}
	doc := document{
		Namespace:      Namespace,
		ShortName:      shortName(opts.ShortName),
		Description:    opts.Description,
		Contact:        opts.Contact,
		InputEncoding:  "UTF-8",
		OutputEncoding: "UTF-8",
		URLs: []urlNode{
			{Type: "application/rss+xml", Template: Template(opts.SearchURL, opts.Params, "")},
			{Type: "text/html", Template: Template(opts.SearchURL, opts.Params, "html")},
		},
	}
	if opts.ImageURL != "" {
		doc.Image = &image{Height: 16, Width: 16, Type: imageType(opts.ImageURL), URL: opts.ImageURL}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode descriptor: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encode descriptor: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Template builds an OpenSearch URL template. The OpenSearch placeholders are
// left unescaped; params are encoded in sorted order.
func Template(searchURL string, params url.Values, format string) string {
	fixed := url.Values{}
	for key, values := range params {
		if key == "query" || key == "startIndex" || key == "count" || key == "format" {
			continue
		}
		fixed[key] = values
	}
	if format != "" {
		fixed.Set("format", format)
	}
	sep := "?"
	if strings.Contains(searchURL, "?") {
		sep = "&"
	}
	if encoded := fixed.Encode(); encoded != "" {
		return searchURL + sep + encoded + "&" + templateParams
	}
	return searchURL + sep + templateParams
}

// FixedParams selects the forwarded parameters present in values.
func FixedParams(values url.Values) url.Values {
	out := url.Values{}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		idx := slices.IndexFunc(ForwardedParams, func(name string) bool { return strings.EqualFold(name, key) })
		if idx >= 0 {
			out.Set(ForwardedParams[idx], vals[0])
		}
	}
	return out
}

// Link returns the descriptor endpoint URL carrying the given parameters.
func Link(descriptorURL string, params url.Values) string {
	if len(params) == 0 {
		return descriptorURL
	}
	return descriptorURL + "?" + params.Encode()
}

func shortName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= maxShortNameLength {
		return name
	}
	return string([]rune(name)[:maxShortNameLength])
}

func imageType(imageURL string) string {
	lower := strings.ToLower(imageURL)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".ico"):
		return "image/x-icon"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	default:
		return ""
	}
}
