package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mau.fi/util/ptr"

	"github.com/beeper/livelink-bridge/pkg/livelink"
)

const (
	NamespaceOpenSearch = "http://a9.com/-/spec/opensearch/1.1/"
	NamespaceMedia      = "http://search.yahoo.com/mrss/"
	NamespaceSearch     = "http://schemas.microsoft.com/windows/2008/propertynamespace"
	NamespaceAtom       = "http://www.w3.org/2005/Atom"

	descriptorType = "application/opensearchdescription+xml"
)

// guidNamespace scopes item GUIDs derived from view URLs.
var guidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:livelink-bridge:item"))

type rssDocument struct {
	XMLName      xml.Name   `xml:"rss"`
	Version      string     `xml:"version,attr"`
	NSOpenSearch string     `xml:"xmlns:os,attr"`
	NSMedia      string     `xml:"xmlns:m,attr"`
	NSSearch     string     `xml:"xmlns:ss,attr"`
	NSAtom       string     `xml:"xmlns:atom,attr"`
	Channel      rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title        string    `xml:"title"`
	Link         string    `xml:"link"`
	Description  string    `xml:"description"`
	SearchLink   *atomLink `xml:"atom:link,omitempty"`
	TotalResults *int      `xml:"os:totalResults,omitempty"`
	StartIndex   *int      `xml:"os:startIndex,omitempty"`
	ItemsPerPage *int      `xml:"os:itemsPerPage,omitempty"`
	Query        *osQuery  `xml:"os:Query,omitempty"`
	Items        []rssItem `xml:"item"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
	Href string `xml:"href,attr"`
}

type osQuery struct {
	Role        string `xml:"role,attr"`
	SearchTerms string `xml:"searchTerms,attr"`
	StartIndex  int    `xml:"startIndex,attr"`
	Count       int    `xml:"count,attr,omitempty"`
}

type rssItem struct {
	Title         string          `xml:"title"`
	Link          string          `xml:"link,omitempty"`
	Description   string          `xml:"description"`
	PubDate       string          `xml:"pubDate,omitempty"`
	Author        string          `xml:"author,omitempty"`
	GUID          *rssGUID        `xml:"guid,omitempty"`
	Thumbnail     *mediaThumbnail `xml:"m:thumbnail,omitempty"`
	Size          *int64          `xml:"ss:System.Size,omitempty"`
	FileExtension string          `xml:"ss:System.FileExtension,omitempty"`
	Enclosure     *rssEnclosure   `xml:"enclosure,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type mediaThumbnail struct {
	URL string `xml:"url,attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// RSS renders a result page as an RSS 2.0 feed with OpenSearch paging elements.
func RSS(page *livelink.ResultPage, opts Options) ([]byte, error) {
	doc := newRSSDocument(opts)
	ch := &doc.Channel
	hits := []livelink.SearchHit{}
	if page != nil {
		hits = page.Hits
		ch.TotalResults = page.TotalResults
		ch.StartIndex = page.StartIndex
		ch.ItemsPerPage = page.ItemsPerPage
	}
	if ch.TotalResults == nil {
		ch.TotalResults = ptr.Ptr(len(hits))
	}
	if ch.StartIndex == nil {
		ch.StartIndex = ptr.Ptr(opts.StartIndex)
	}
	if ch.ItemsPerPage == nil {
		ch.ItemsPerPage = ptr.Ptr(len(hits))
	}
	ch.Items = make([]rssItem, 0, len(hits))
	for _, hit := range hits {
		ch.Items = append(ch.Items, newRSSItem(hit, opts.MaxSummaryLength))
	}
	return marshalRSS(doc, opts.encoding())
}

// RSSError renders message as the only item of an otherwise normal feed, for
// clients that ignore HTTP errors.
func RSSError(title, message string, opts Options) ([]byte, error) {
	doc := newRSSDocument(opts)
	doc.Channel.TotalResults = ptr.Ptr(1)
	doc.Channel.StartIndex = ptr.Ptr(0)
	doc.Channel.ItemsPerPage = ptr.Ptr(1)
	doc.Channel.Items = []rssItem{{
		Title:       title,
		Link:        opts.BrowseURL,
		Description: message,
	}}
	return marshalRSS(doc, opts.encoding())
}

func newRSSDocument(opts Options) *rssDocument {
	doc := &rssDocument{
		Version:      "2.0",
		NSOpenSearch: NamespaceOpenSearch,
		NSMedia:      NamespaceMedia,
		NSSearch:     NamespaceSearch,
		NSAtom:       NamespaceAtom,
		Channel: rssChannel{
			Title:       fmt.Sprintf("Livelink: %s", opts.QueryText),
			Link:        opts.BrowseURL,
			Description: fmt.Sprintf("Livelink search results for %q", opts.QueryText),
			Query: &osQuery{
				Role:        "request",
				SearchTerms: opts.QueryText,
				StartIndex:  opts.StartIndex,
				Count:       opts.PageSize,
			},
		},
	}
	if opts.DescriptorURL != "" {
		doc.Channel.SearchLink = &atomLink{Rel: "search", Type: descriptorType, Href: opts.DescriptorURL}
	}
	return doc
}

func newRSSItem(hit livelink.SearchHit, maxSummaryLength int) rssItem {
	item := rssItem{
		Title:       hit.Title,
		Link:        hit.ViewURL,
		Description: HighlightHTML(TruncateSummary(hit.SummaryHTML, maxSummaryLength)),
		PubDate:     PubDate(hit.CreatedDate),
		Author:      hit.CreatedBy,
	}
	if hit.ViewURL != "" {
		item.GUID = &rssGUID{Value: uuid.NewSHA1(guidNamespace, []byte(hit.ViewURL)).String()}
	}
	if hit.IconURL != "" {
		item.Thumbnail = &mediaThumbnail{URL: hit.IconURL}
	}
	if hit.SizeBytes != nil && *hit.SizeBytes > 0 {
		item.Size = hit.SizeBytes
		item.FileExtension = FileExtension(hit.Title, hit.MIMEType)
	}
	if strings.TrimSpace(hit.Title) != "" && strings.TrimSpace(hit.MIMEType) != "" {
		enclosure := &rssEnclosure{URL: hit.DownloadURL, Type: hit.MIMEType}
		if enclosure.URL == "" {
			enclosure.URL = hit.ViewURL
		}
		if hit.SizeBytes != nil && *hit.SizeBytes > 0 {
			enclosure.Length = *hit.SizeBytes
		}
		if enclosure.URL != "" {
			item.Enclosure = enclosure
		}
	}
	return item
}

func marshalRSS(doc *rssDocument, enc Encoding) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<?xml version=\"1.0\" encoding=\"%s\"?>\n", enc.Charset())
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode rss: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encode rss: %w", err)
	}
	buf.WriteByte('\n')
	return enc.apply(buf.Bytes()), nil
}
