package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/beeper/livelink-bridge/pkg/livelink"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	resultsTemplate = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/results.html"))
	errorTemplate   = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/error.html"))
)

type pageHeader struct {
	Charset string
	Title   string
	Heading string
	IconURL string
}

type resultsPage struct {
	pageHeader
	Summary   string
	BrowseURL string
	Hits      []htmlHit
	PrevURL   string
	NextURL   string
}

type htmlHit struct {
	Title        string
	ViewURL      string
	IconURL      string
	Summary      template.HTML
	Size         string
	Author       string
	Created      string
	LocationURL  string
	LocationName string
}

func (h htmlHit) HasMeta() bool {
	return h.Size != "" || h.Author != "" || h.Created != "" || h.LocationURL != "" || h.LocationName != ""
}

type errorPage struct {
	pageHeader
	ErrorTitle string
	Message    string
	Detail     string
	RequestID  string
}

// HTML renders a result page for people. Next is offered only when the
// backend returned exactly the requested page size.
func HTML(page *livelink.ResultPage, opts Options) ([]byte, error) {
	var hits []livelink.SearchHit
	if page != nil {
		hits = page.Hits
	}
	data := resultsPage{
		pageHeader: pageHeader{
			Charset: opts.encoding().Charset(),
			Title:   fmt.Sprintf("Livelink: %s", opts.QueryText),
			Heading: fmt.Sprintf("Livelink search: %s", opts.QueryText),
			IconURL: opts.IconURL,
		},
		BrowseURL: opts.BrowseURL,
		Summary:   resultSummary(page, len(hits), opts.StartIndex),
		Hits:      make([]htmlHit, 0, len(hits)),
	}
	for _, hit := range hits {
		data.Hits = append(data.Hits, newHTMLHit(hit, opts.MaxSummaryLength))
	}
	if opts.StartIndex > 0 {
		// Without a known page size the previous page boundary is unknown,
		// so link back to the first page.
		prevIndex := 0
		if opts.PageSize > 0 {
			prevIndex = max(opts.StartIndex-opts.PageSize, 0)
		}
		data.PrevURL = opts.pageURL(prevIndex)
	}
	if opts.PageSize > 0 && len(hits) == opts.PageSize {
		data.NextURL = opts.pageURL(opts.StartIndex + opts.PageSize)
	}
	return execute(resultsTemplate, "results.html", data, opts.encoding())
}

// HTMLError renders a complete error page with optional diagnostic detail.
func HTMLError(title, message, detail, requestID string, opts Options) ([]byte, error) {
	data := errorPage{
		pageHeader: pageHeader{
			Charset: opts.encoding().Charset(),
			Title:   title,
			Heading: "Livelink search",
			IconURL: opts.IconURL,
		},
		ErrorTitle: title,
		Message:    message,
		Detail:     detail,
		RequestID:  requestID,
	}
	return execute(errorTemplate, "error.html", data, opts.encoding())
}

func newHTMLHit(hit livelink.SearchHit, maxSummaryLength int) htmlHit {
	out := htmlHit{
		Title:        hit.Title,
		ViewURL:      hit.ViewURL,
		IconURL:      hit.IconURL,
		Summary:      template.HTML(HighlightHTML(TruncateSummary(hit.SummaryHTML, maxSummaryLength))), //nolint:gosec // escaped by HighlightHTML
		Author:       hit.CreatedBy,
		Created:      DisplayDate(hit.CreatedDate),
		LocationURL:  hit.LocationURL,
		LocationName: hit.LocationName,
	}
	if out.Title == "" {
		out.Title = hit.ViewURL
	}
	if hit.SizeBytes != nil && *hit.SizeBytes > 0 {
		out.Size = HumanSize(*hit.SizeBytes)
	}
	return out
}

func resultSummary(page *livelink.ResultPage, count, startIndex int) string {
	if count == 0 {
		return ""
	}
	first, last := startIndex+1, startIndex+count
	if page != nil && page.StartIndex != nil {
		first, last = *page.StartIndex+1, *page.StartIndex+count
	}
	if page != nil && page.TotalResults != nil {
		return fmt.Sprintf("Results %d-%d of about %d.", first, last, *page.TotalResults)
	}
	return fmt.Sprintf("Results %d-%d.", first, last)
}

func execute(tmpl *template.Template, name string, data any, enc Encoding) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", strings.TrimSuffix(name, ".html"), err)
	}
	return enc.apply(buf.Bytes()), nil
}
