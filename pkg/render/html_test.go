package render

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beeper/livelink-bridge/pkg/livelink"
)

func parseHTML(t *testing.T, body []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err)
	return doc
}

func selfURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestHTMLRendersHits(t *testing.T) {
	body, err := HTML(samplePage(), Options{
		QueryText:  "budget",
		BrowseURL:  "http://ll.example.com/livelink.exe?func=search&where1=budget",
		SelfURL:    selfURL(t, "http://bridge.example.com/search?query=budget&count=2&startIndex=2"),
		StartIndex: 2,
		PageSize:   2,
	})
	require.NoError(t, err)
	doc := parseHTML(t, body)

	assert.Equal(t, "Livelink: budget", doc.Find("title").Text())
	assert.Equal(t, "Livelink search: budget", doc.Find("header h1").Text())
	assert.Equal(t, "Results 3-4 of about 42.", strings.TrimSpace(doc.Find(".summary-line").Contents().First().Text()))

	results := doc.Find(".result")
	require.Equal(t, 2, results.Length())
	first := results.First()
	assert.Equal(t, "Budget.xlsx", first.Find(".title a").Text())
	assert.Equal(t, "http://ll.example.com/view/1", first.Find(".title a").AttrOr("href", ""))
	summary, err := first.Find(".summary").Html()
	require.NoError(t, err)
	assert.Equal(t, "The <b>budget</b> for Q3", summary)
	assert.Equal(t, "2 KB", first.Find(".meta .size").Text())
	assert.Equal(t, "jdoe", first.Find(".meta .author").Text())
	assert.Equal(t, "Mar 5, 2024", first.Find(".meta .created").Text())
	assert.Equal(t, "Finance", first.Find(".meta .location a").Text())

	second := results.Eq(1)
	assert.Zero(t, second.Find(".meta").Length())
	assert.Zero(t, second.Find(".title img").Length())

	next := selfURL(t, doc.Find("a.next").AttrOr("href", ""))
	assert.Equal(t, "4", next.Query().Get("startIndex"))
	assert.Equal(t, "budget", next.Query().Get("query"))
	prev := selfURL(t, doc.Find("a.previous").AttrOr("href", ""))
	assert.Empty(t, prev.Query().Get("startIndex"))
	assert.Equal(t, "2", prev.Query().Get("count"))
}

func TestHTMLNextOnlyWhenPageIsFull(t *testing.T) {
	body, err := HTML(samplePage(), Options{
		QueryText: "budget",
		SelfURL:   selfURL(t, "http://bridge.example.com/search?query=budget"),
		PageSize:  10,
	})
	require.NoError(t, err)
	doc := parseHTML(t, body)
	assert.Zero(t, doc.Find("a.next").Length())
	assert.Zero(t, doc.Find("a.previous").Length())
	assert.Zero(t, doc.Find(".paging").Length())
}

func TestHTMLPreviousWithoutPageSizeGoesToFirstPage(t *testing.T) {
	body, err := HTML(samplePage(), Options{
		QueryText:  "budget",
		SelfURL:    selfURL(t, "http://bridge.example.com/search?format=html&query=budget&startIndex=10"),
		StartIndex: 10,
	})
	require.NoError(t, err)
	doc := parseHTML(t, body)
	prevHref, ok := doc.Find("a.previous").Attr("href")
	require.True(t, ok)
	prev := selfURL(t, prevHref)
	assert.Empty(t, prev.Query().Get("startIndex"))
	assert.Equal(t, "html", prev.Query().Get("format"))
	assert.Zero(t, doc.Find("a.next").Length())
}

func TestHTMLNoResults(t *testing.T) {
	body, err := HTML(&livelink.ResultPage{Hits: []livelink.SearchHit{}}, Options{QueryText: "nothing", PageSize: 10})
	require.NoError(t, err)
	doc := parseHTML(t, body)
	assert.Equal(t, "No items were found.", doc.Find(".empty").Text())
	assert.Zero(t, doc.Find(".result").Length())
}

func TestHTMLEscapesBackendText(t *testing.T) {
	page := &livelink.ResultPage{Hits: []livelink.SearchHit{{
		Title:       "<script>alert(1)</script>",
		ViewURL:     "javascript:alert(1)",
		SummaryHTML: "<img src=x onerror=alert(1)>",
	}}}
	body, err := HTML(page, Options{QueryText: "x"})
	require.NoError(t, err)
	assert.NotContains(t, string(body), "<script>")
	assert.NotContains(t, string(body), "<img src=x")
	assert.NotContains(t, string(body), `href="javascript:`)
}

func TestHTMLError(t *testing.T) {
	body, err := HTMLError("Invalid search request", "livelinkUrl is required", "detail <here>", "req-1", Options{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "<!DOCTYPE html>"))
	doc := parseHTML(t, body)
	assert.Equal(t, "Invalid search request", doc.Find(".error h2").Text())
	assert.Equal(t, "livelinkUrl is required", doc.Find(".message").Text())
	assert.Equal(t, "detail <here>", doc.Find(".detail").Text())
	assert.Equal(t, "Request ID: req-1", doc.Find(".request-id").Text())
}
