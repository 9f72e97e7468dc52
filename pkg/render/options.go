package render

import (
	"net/url"
	"strconv"
)

const (
	ContentTypeRSS  = "text/xml"
	ContentTypeHTML = "text/html"
	ContentTypeText = "text/plain"
)

// Options carries the request context a renderer needs besides the hits.
type Options struct {
	QueryText        string
	MaxSummaryLength int
	Encoding         Encoding
	// BrowseURL is the backend search URL a human can open directly.
	BrowseURL string
	// DescriptorURL is advertised as the search description of the feed.
	DescriptorURL string
	// SelfURL is the inbound request URL; paging links rewrite its startIndex.
	SelfURL *url.URL
	// StartIndex and PageSize are the requested 0-based offset and count.
	StartIndex int
	PageSize   int
	// IconURL is shown in the HTML page header.
	IconURL string
}

func (o Options) encoding() Encoding {
	if o.Encoding == "" {
		return EncodingUTF8
	}
	return o.Encoding
}

// ContentType returns mediaType with the charset of the options' encoding.
func (o Options) ContentType(mediaType string) string {
	return mediaType + "; charset=" + o.encoding().Charset()
}

func (o Options) pageURL(startIndex int) string {
	if o.SelfURL == nil {
		return ""
	}
	u := *o.SelfURL
	q := u.Query()
	if startIndex > 0 {
		q.Set("startIndex", strconv.Itoa(startIndex))
	} else {
		q.Del("startIndex")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
