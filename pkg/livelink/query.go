package livelink

import (
	"net/url"
	"strconv"
	"strings"
)

// Query string parameters understood by the Livelink search request handler.
const (
	ParamFunc         = "func"
	ParamOutputFormat = "outputformat"
	ParamWhere        = "where1"
	ParamUserLogin    = "userLogin"
	ParamStartAt      = "startAt"
	ParamPageSize     = "pageSize"

	FuncSearch = "search"
	OutputXML  = "xml"
)

// browserHiddenParams are dropped by ToBrowserUsage.
var browserHiddenParams = []string{ParamUserLogin, ParamOutputFormat}

// BuildQuery renders the backend query string (without the leading "?").
// startIndex is the caller's 0-based index; the backend counts from 1.
func BuildQuery(queryText, impersonatedUser string, startIndex, pageSize int, extraParams string) string {
	var sb strings.Builder
	sb.WriteString(ParamFunc + "=" + FuncSearch)
	sb.WriteString("&" + ParamOutputFormat + "=" + OutputXML)
	sb.WriteString("&" + ParamWhere + "=" + url.QueryEscape(queryText))
	if impersonatedUser != "" {
		sb.WriteString("&" + ParamUserLogin + "=" + url.QueryEscape(impersonatedUser))
	}
	if startIndex > 0 {
		sb.WriteString("&" + ParamStartAt + "=" + strconv.Itoa(startIndex+1))
	}
	if pageSize > 0 {
		sb.WriteString("&" + ParamPageSize + "=" + strconv.Itoa(pageSize))
	}
	if extra := strings.TrimLeft(strings.TrimSpace(extraParams), "?&"); extra != "" {
		sb.WriteString("&" + extra)
	}
	return sb.String()
}

// ToBrowserUsage removes the impersonation and forced-XML parameters so the
// result can be opened interactively. It accepts a bare query string, one
// starting with "?", or a full URL.
func ToBrowserUsage(queryString string) string {
	prefix, query := splitQuery(queryString)
	segments := strings.Split(query, "&")
	kept := segments[:0]
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		if isHiddenParam(paramName(segment)) {
			continue
		}
		kept = append(kept, segment)
	}
	return prefix + strings.Join(kept, "&")
}

// ExtractPageSize finds the first page size parameter with an integer value,
// wherever it appears. Malformed duplicates are skipped.
func ExtractPageSize(queryString string) (int, bool) {
	_, query := splitQuery(queryString)
	for _, segment := range strings.Split(query, "&") {
		if !strings.EqualFold(paramName(segment), ParamPageSize) {
			continue
		}
		_, value, _ := strings.Cut(segment, "=")
		size, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		return size, true
	}
	return 0, false
}

func splitQuery(queryString string) (prefix, query string) {
	if idx := strings.IndexByte(queryString, '?'); idx >= 0 {
		return queryString[:idx+1], queryString[idx+1:]
	}
	return "", queryString
}

func paramName(segment string) string {
	name, _, _ := strings.Cut(segment, "=")
	if unescaped, err := url.QueryUnescape(name); err == nil {
		name = unescaped
	}
	return strings.TrimSpace(name)
}

func isHiddenParam(name string) bool {
	for _, hidden := range browserHiddenParams {
		if strings.EqualFold(name, hidden) {
			return true
		}
	}
	return false
}
