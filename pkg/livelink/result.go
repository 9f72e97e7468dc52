package livelink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.mau.fi/util/ptr"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/beeper/livelink-bridge/pkg/llerrors"
)

// Highlight markers as they appear in SearchHit.SummaryHTML.
const (
	HighlightStart = "<HH>"
	HighlightEnd   = "</HH>"

	highlightElement = "HH"
)

// SearchHit is one backend result record.
type SearchHit struct {
	Title       string
	ViewURL     string
	DownloadURL string
	MIMEType    string
	IconURL     string
	// SummaryHTML is unescaped text that may contain HighlightStart/HighlightEnd.
	SummaryHTML  string
	CreatedBy    string
	CreatedDate  string
	SizeBytes    *int64
	LocationURL  string
	LocationName string
}

// ResultPage is the parsed response. StartIndex is 0-based.
type ResultPage struct {
	Hits         []SearchHit
	TotalResults *int
	StartIndex   *int
	ItemsPerPage *int
}

type outputDocument struct {
	XMLName xml.Name       `xml:"Output"`
	Error   *textNode      `xml:"Error"`
	Info    *resultsInfo   `xml:"SearchResultsInformation"`
	Results *searchResults `xml:"SearchResults"`
}

type resultsInfo struct {
	CurrentStartAt        *textNode `xml:"CurrentStartAt"`
	NumberResultsThisPage *textNode `xml:"NumberResultsThisPage"`
	EstTotalResults       *textNode `xml:"EstTotalResults"`
}

type searchResults struct {
	Items []searchResult `xml:"SearchResult"`
}

type searchResult struct {
	Name      *nameNode     `xml:"OTName"`
	MIMEType  *mimeNode     `xml:"OTMIMEType"`
	Summary   *summaryNode  `xml:"OTSummary"`
	Size      *sizeNode     `xml:"OTObjectSize"`
	CreatedBy *textNode     `xml:"OTCreatedBy"`
	Date      *textNode     `xml:"OTObjectDate"`
	Location  *locationNode `xml:"OTLocation"`
}

type textNode struct {
	Text string `xml:",chardata"`
}

type nameNode struct {
	Text        string `xml:",chardata"`
	ViewURL     string `xml:"ViewURL,attr"`
	DownloadURL string `xml:"DownloadURL,attr"`
}

type mimeNode struct {
	Text    string `xml:",chardata"`
	IconURL string `xml:"IconURL,attr"`
}

type sizeNode struct {
	Text   string `xml:",chardata"`
	Suffix string `xml:"Suffix,attr"`
}

type locationNode struct {
	URL  string `xml:"URL,attr"`
	Name string `xml:"Name,attr"`
}

// summaryNode flattens OTSummary content, keeping highlight elements as markers.
type summaryNode struct {
	Text string
}

func (s *summaryNode) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
			if strings.EqualFold(t.Name.Local, highlightElement) {
				sb.WriteString(HighlightStart)
			}
		case xml.EndElement:
			if depth == 0 {
				s.Text = sb.String()
				return nil
			}
			depth--
			if strings.EqualFold(t.Name.Local, highlightElement) {
				sb.WriteString(HighlightEnd)
			}
		}
	}
}

func (n *textNode) value() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Text)
}

func (n *textNode) intValue() *int {
	value := n.value()
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return nil
	}
	return ptr.Ptr(parsed)
}

// Parse reads a complete backend response. A document whose root holds an
// Error element yields a backend error; anything that is not the expected
// XML document yields a parse error.
func Parse(r io.Reader) (*ResultPage, error) {
	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	if err != nil {
		return nil, llerrors.Parse("could not read backend response", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, llerrors.Parse("backend returned an empty response", nil)
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel
	var doc outputDocument
	if err := decoder.Decode(&doc); err != nil {
		return nil, llerrors.Parse(describeUnparseable(data), err)
	}

	if doc.Error != nil {
		message := doc.Error.value()
		if message == "" {
			message = "backend reported an unspecified error"
		}
		return nil, llerrors.Backend(message)
	}

	page := &ResultPage{Hits: []SearchHit{}}
	if doc.Info != nil {
		page.TotalResults = doc.Info.EstTotalResults.intValue()
		page.ItemsPerPage = doc.Info.NumberResultsThisPage.intValue()
		if startAt := doc.Info.CurrentStartAt.intValue(); startAt != nil {
			page.StartIndex = ptr.Ptr(max(*startAt-1, 0))
		}
	}
	if doc.Results == nil {
		return page, nil
	}
	for _, item := range doc.Results.Items {
		// A record without OTName is the backend's "no results" placeholder;
		// nothing collected before it is reported.
		if item.Name == nil {
			page.Hits = []SearchHit{}
			break
		}
		page.Hits = append(page.Hits, item.toHit())
	}
	return page, nil
}

func (r *searchResult) toHit() SearchHit {
	hit := SearchHit{
		Title:       strings.TrimSpace(r.Name.Text),
		ViewURL:     strings.TrimSpace(r.Name.ViewURL),
		DownloadURL: strings.TrimSpace(r.Name.DownloadURL),
		CreatedBy:   r.CreatedBy.value(),
		CreatedDate: r.Date.value(),
	}
	if r.MIMEType != nil {
		hit.MIMEType = strings.TrimSpace(r.MIMEType.Text)
		hit.IconURL = strings.TrimSpace(r.MIMEType.IconURL)
	}
	if r.Summary != nil {
		hit.SummaryHTML = strings.TrimSpace(r.Summary.Text)
	}
	if r.Size != nil {
		if size, ok := ParseSize(r.Size.Text, r.Size.Suffix); ok {
			hit.SizeBytes = ptr.Ptr(size)
		}
	}
	if r.Location != nil {
		hit.LocationURL = strings.TrimSpace(r.Location.URL)
		hit.LocationName = strings.TrimSpace(r.Location.Name)
	}
	return hit
}

// describeUnparseable explains a body that failed XML decoding. HTML bodies
// usually mean the login silently failed and the backend served its login page.
func describeUnparseable(data []byte) string {
	if !bytes.Contains(bytes.ToLower(data[:min(len(data), 4096)]), []byte("<html")) {
		return "backend response is not a Livelink XML document"
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "backend returned an HTML page instead of XML"
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return "backend returned an HTML page instead of XML; authentication may have failed"
	}
	return fmt.Sprintf("backend returned an HTML page titled %q instead of XML; authentication may have failed", title)
}
