package livelink

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueryStartOffset(t *testing.T) {
	for startIndex := 0; startIndex < 25; startIndex++ {
		query := BuildQuery("q", "", startIndex, 0, "")
		if startIndex == 0 {
			assert.NotContains(t, query, ParamStartAt+"=")
			continue
		}
		assert.Contains(t, query, fmt.Sprintf("&%s=%d", ParamStartAt, startIndex+1))
	}
}

func TestBuildQueryParameters(t *testing.T) {
	query := BuildQuery("budget report & plan", `CORP\jdoe`, 5, 10, "&lookfor1=allwords")
	assert.Equal(t,
		`func=search&outputformat=xml&where1=budget+report+%26+plan&userLogin=CORP%5Cjdoe&startAt=6&pageSize=10&lookfor1=allwords`,
		query)
}

func TestBuildQueryOmitsOptionalParameters(t *testing.T) {
	query := BuildQuery("memo", "", 0, 0, "")
	assert.Equal(t, "func=search&outputformat=xml&where1=memo", query)
}

func TestToBrowserUsageStripsImpersonationAndXML(t *testing.T) {
	for _, user := range []string{"jdoe", `CORP\jdoe`, "a b", "x&y=z"} {
		browser := ToBrowserUsage(BuildQuery("q", user, 5, 10, ""))
		assert.NotContains(t, browser, ParamUserLogin)
		assert.NotContains(t, browser, ParamOutputFormat)
		assert.Equal(t, "func=search&where1=q&startAt=6&pageSize=10", browser)
	}
}

func TestToBrowserUsagePositions(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"first with question mark", "?userLogin=jdoe&func=search&where1=q", "?func=search&where1=q"},
		{"middle", "func=search&userLogin=jdoe&where1=q&pageSize=5", "func=search&where1=q&pageSize=5"},
		{"last", "func=search&where1=q&outputformat=xml", "func=search&where1=q"},
		{"full url", "https://ll.example.com/livelink.exe?outputformat=xml&func=search&userLogin=a", "https://ll.example.com/livelink.exe?func=search"},
		{"lookalike names survive", "func=search&userLoginHint=x&xoutputformat=y", "func=search&userLoginHint=x&xoutputformat=y"},
		{"case insensitive", "func=search&OUTPUTFORMAT=xml&UserLogin=a", "func=search"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToBrowserUsage(tc.in))
		})
	}
}

func TestExtractPageSize(t *testing.T) {
	size, ok := ExtractPageSize("pageSize=25&func=search")
	require.True(t, ok)
	assert.Equal(t, 25, size)

	size, ok = ExtractPageSize("https://ll.example.com/livelink.exe?func=search&pageSize=7")
	require.True(t, ok)
	assert.Equal(t, 7, size)

	size, ok = ExtractPageSize("?pageSize=3")
	require.True(t, ok)
	assert.Equal(t, 3, size)

	_, ok = ExtractPageSize("func=search&where1=pageSize")
	assert.False(t, ok)

	_, ok = ExtractPageSize("func=search&pageSize=lots")
	assert.False(t, ok)

	size, ok = ExtractPageSize("func=search&pageSize=lots&pageSize=15")
	require.True(t, ok)
	assert.Equal(t, 15, size)
}

func TestBuildQueryExtraParamsVerbatim(t *testing.T) {
	query := BuildQuery("q", "", 0, 0, "?slice=%7B2000%7D&x=1")
	assert.True(t, strings.HasSuffix(query, "&slice=%7B2000%7D&x=1"), query)
}
