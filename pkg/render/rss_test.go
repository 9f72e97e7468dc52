package render

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/util/ptr"

	"github.com/beeper/livelink-bridge/pkg/livelink"
)

type parsedFeed struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			GUID        string `xml:"guid"`
		} `xml:"item"`
	} `xml:"channel"`
}

func decodeFeed(t *testing.T, body []byte) parsedFeed {
	t.Helper()
	var feed parsedFeed
	require.NoError(t, xml.Unmarshal(body, &feed))
	return feed
}

func TestRSSRendersHits(t *testing.T) {
	body, err := RSS(samplePage(), Options{
		QueryText:     "budget",
		BrowseURL:     "http://ll.example.com/livelink.exe?func=search&where1=budget",
		DescriptorURL: "http://bridge.example.com/opensearch.xml",
		StartIndex:    2,
		PageSize:      2,
	})
	require.NoError(t, err)
	out := string(body)

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Contains(t, out, `xmlns:os="http://a9.com/-/spec/opensearch/1.1/"`)
	assert.Contains(t, out, `xmlns:m="http://search.yahoo.com/mrss/"`)
	assert.Contains(t, out, `xmlns:ss="http://schemas.microsoft.com/windows/2008/propertynamespace"`)
	assert.Contains(t, out, `<os:totalResults>42</os:totalResults>`)
	assert.Contains(t, out, `<os:startIndex>2</os:startIndex>`)
	assert.Contains(t, out, `<os:itemsPerPage>2</os:itemsPerPage>`)
	assert.Contains(t, out, `<atom:link rel="search" type="application/opensearchdescription+xml" href="http://bridge.example.com/opensearch.xml"></atom:link>`)

	assert.Contains(t, out, `<m:thumbnail url="http://ll.example.com/img/xls.gif"></m:thumbnail>`)
	assert.Contains(t, out, `<ss:System.Size>2048</ss:System.Size>`)
	assert.Contains(t, out, `<ss:System.FileExtension>xlsx</ss:System.FileExtension>`)
	assert.Contains(t, out, `<enclosure url="http://ll.example.com/fetch/1" length="2048" type="application/vnd.ms-excel"></enclosure>`)
	assert.Contains(t, out, `<pubDate>Tue, 05 Mar 2024 00:00:00 +0000</pubDate>`)
	assert.Contains(t, out, `<author>jdoe</author>`)
	assert.Equal(t, 1, strings.Count(out, "<ss:System.Size>"))
	assert.Equal(t, 1, strings.Count(out, "<enclosure"))
	assert.Equal(t, 1, strings.Count(out, "<m:thumbnail"))

	feed := decodeFeed(t, body)
	assert.Equal(t, "Livelink: budget", feed.Channel.Title)
	require.Len(t, feed.Channel.Items, 2)
	assert.Equal(t, "Budget.xlsx", feed.Channel.Items[0].Title)
	assert.Equal(t, "The <b>budget</b> for Q3", feed.Channel.Items[0].Description)
	assert.Equal(t, "http://ll.example.com/view/2", feed.Channel.Items[1].Link)
	assert.NotEmpty(t, feed.Channel.Items[0].GUID)
	assert.NotEqual(t, feed.Channel.Items[0].GUID, feed.Channel.Items[1].GUID)
}

func TestRSSIgnoresNonPositiveSize(t *testing.T) {
	page := samplePage()
	page.Hits[0].SizeBytes = ptr.Ptr[int64](-1)
	body, err := RSS(page, Options{QueryText: "budget"})
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, `<enclosure url="http://ll.example.com/fetch/1" length="0" type="application/vnd.ms-excel"></enclosure>`)
	assert.NotContains(t, out, "System.Size")
}

func TestRSSGUIDIsStable(t *testing.T) {
	first, err := RSS(samplePage(), Options{QueryText: "budget"})
	require.NoError(t, err)
	second, err := RSS(samplePage(), Options{QueryText: "other"})
	require.NoError(t, err)
	assert.Equal(t, decodeFeed(t, first).Channel.Items[0].GUID, decodeFeed(t, second).Channel.Items[0].GUID)
}

func TestRSSEmptyChannel(t *testing.T) {
	body, err := RSS(&livelink.ResultPage{Hits: []livelink.SearchHit{}}, Options{QueryText: "nothing"})
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, `<os:totalResults>0</os:totalResults>`)
	assert.NotContains(t, out, "<item>")
	assert.Empty(t, decodeFeed(t, body).Channel.Items)
}

func TestRSSTruncatesSummary(t *testing.T) {
	page := &livelink.ResultPage{Hits: []livelink.SearchHit{{
		Title:       "Long",
		ViewURL:     "http://ll.example.com/view/3",
		SummaryHTML: strings.Repeat("x", 200),
	}}}
	body, err := RSS(page, Options{QueryText: "x", MaxSummaryLength: 185})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 185)+Ellipsis, decodeFeed(t, body).Channel.Items[0].Description)
}

func TestRSSASCIIEncoding(t *testing.T) {
	body, err := RSS(&livelink.ResultPage{}, Options{QueryText: "café", Encoding: EncodingASCII})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), `<?xml version="1.0" encoding="us-ascii"?>`))
	assert.Contains(t, string(body), "caf&#233;")
	for _, b := range body {
		require.Less(t, b, byte(0x80))
	}
}

func TestRSSError(t *testing.T) {
	body, err := RSSError("Livelink reported an error", "Login failed", Options{QueryText: "budget"})
	require.NoError(t, err)
	assert.Contains(t, string(body), `<os:totalResults>1</os:totalResults>`)
	feed := decodeFeed(t, body)
	require.Len(t, feed.Channel.Items, 1)
	assert.Equal(t, "Livelink reported an error", feed.Channel.Items[0].Title)
	assert.Equal(t, "Login failed", feed.Channel.Items[0].Description)
}
