package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/hlog"
	"go.mau.fi/util/exhttp"

	"github.com/beeper/livelink-bridge/pkg/descriptor"
	"github.com/beeper/livelink-bridge/pkg/search"
)

// handleSearch handles GET /search
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	in := search.Inbound{
		Query:  r.URL.Query(),
		Header: r.Header,
		URL:    absoluteURL(r),
	}
	if id, ok := hlog.IDFromRequest(r); ok {
		in.RequestID = id.String()
	}
	writeResponse(w, s.orch.Run(r.Context(), in))
}

// handleDescriptor handles GET /opensearch.xml
func (s *Server) handleDescriptor(w http.ResponseWriter, r *http.Request) {
	cfg := s.orch.Config()
	base := s.orch.PublicBaseURL(absoluteURL(r))
	params := url.Values{}
	for key, value := range cfg.Descriptor.Params {
		params.Set(key, value)
	}
	for key, values := range descriptor.FixedParams(r.URL.Query()) {
		params[key] = values
	}
	body, err := descriptor.Render(descriptor.Options{
		ShortName:   cfg.Descriptor.ShortName,
		Description: cfg.Descriptor.Description,
		Contact:     cfg.Descriptor.Contact,
		ImageURL:    cfg.Descriptor.ImageURL,
		SearchURL:   base + search.SearchPath,
		Params:      params,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", descriptor.ContentType+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	exhttp.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func writeResponse(w http.ResponseWriter, resp *search.Response) {
	for name, values := range resp.Header {
		w.Header()[name] = values
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// absoluteURL reconstructs the public request URL from the request and
// proxy headers.
func absoluteURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		u.Scheme = proto
	}
	return &u
}
