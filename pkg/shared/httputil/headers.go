package httputil

import "net/http"

// ForwardHeaders copies the named headers from src into dst, replacing any
// existing values. Missing headers are skipped.
func ForwardHeaders(dst, src http.Header, names []string) {
	if dst == nil || src == nil {
		return
	}
	for _, name := range names {
		values := src.Values(name)
		if len(values) == 0 {
			continue
		}
		dst.Del(name)
		for _, value := range values {
			dst.Add(name, value)
		}
	}
}

// CloneHeaders returns a copy of the named headers only.
func CloneHeaders(src http.Header, names []string) http.Header {
	out := make(http.Header, len(names))
	ForwardHeaders(out, src, names)
	return out
}
