package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/beeper/livelink-bridge/pkg/credstore"
	"github.com/beeper/livelink-bridge/pkg/descriptor"
	"github.com/beeper/livelink-bridge/pkg/livelink"
	"github.com/beeper/livelink-bridge/pkg/llerrors"
	"github.com/beeper/livelink-bridge/pkg/render"
	"github.com/beeper/livelink-bridge/pkg/shared/httputil"
	"github.com/beeper/livelink-bridge/pkg/shared/logutil"
)

const (
	// DescriptorPath is where the server publishes the descriptor document.
	DescriptorPath = "/opensearch.xml"
	// SearchPath is where the server accepts searches.
	SearchPath = "/search"

	headerStatusDescription = "X-Status-Description"
)

// Orchestrator runs one search from inbound parameters to a buffered response.
// It is safe for concurrent use; each Run owns its backend session.
type Orchestrator struct {
	cfg     *Config
	creds   credstore.Store
	metrics *Metrics
	log     zerolog.Logger
}

// NewOrchestrator creates an orchestrator. metrics may be nil; a nil creds
// store falls back to the configured credentials. cfg is defaulted into a
// private copy and only read afterwards.
func NewOrchestrator(cfg *Config, creds credstore.Store, metrics *Metrics, log zerolog.Logger) *Orchestrator {
	cfg = cfg.WithDefaults()
	if creds == nil {
		creds = credstore.NewStatic(cfg.CredentialEntries())
	}
	return &Orchestrator{
		cfg:     cfg,
		creds:   creds,
		metrics: metrics,
		log:     log,
	}
}

// Run executes the search. It never returns a partial response: every
// failure is converted into the presentation chosen from the raw parameters
// before any other work happens.
func (o *Orchestrator) Run(ctx context.Context, in Inbound) *Response {
	start := time.Now()
	presentation := ChoosePresentation(in.Query)
	log := logutil.LoggerFromContext(ctx, &o.log)

	req, err := ParseRequest(in.Query, in.Header, o.cfg)
	format := FormatXML
	opts := o.baseOptions(in)
	if req != nil {
		format = req.Format
		opts.QueryText = req.QueryText
		opts.Encoding = req.Encoding()
		opts.MaxSummaryLength = req.MaxSummaryLength
		opts.StartIndex = req.StartIndex
	} else if presentation == PresentHTML {
		format = FormatHTML
	}

	var resp *Response
	if err == nil {
		resp, err = o.search(ctx, in, req, opts)
	}
	if err != nil {
		resp = o.presentError(presentation, err, in, opts)
		llErr := llerrors.As(err)
		level := zerolog.ErrorLevel
		if llErr.Kind == llerrors.KindValidation || llErr.Kind == llerrors.KindBackend {
			level = zerolog.WarnLevel
		}
		log.WithLevel(level).Err(err).
			Str("error_kind", string(llErr.Kind)).
			Str("format", string(format)).
			Str("presentation", presentation.String()).
			Str("backend_host", backendHost(req)).
			Dur("duration", time.Since(start)).
			Msg("Search failed")
		o.metrics.observeRequest(format, string(llerrors.KindOf(err)))
		return resp
	}

	log.Debug().
		Str("format", string(format)).
		Str("backend_host", backendHost(req)).
		Bool("sso", req.UseSSO).
		Dur("duration", time.Since(start)).
		Msg("Search completed")
	o.metrics.observeRequest(format, "ok")
	return resp
}

func (o *Orchestrator) search(ctx context.Context, in Inbound, req *SearchRequest, opts render.Options) (*Response, error) {
	client, err := livelink.NewClient(livelink.ClientConfig{
		BaseURL:          req.BackendURL,
		UserAgent:        o.cfg.Backend.UserAgent,
		Timeout:          o.cfg.Backend.Timeout(),
		IgnoreTLSErrors:  req.IgnoreTLSErrors,
		SSO:              req.UseSSO,
		AmbientHeaders:   httputil.CloneHeaders(in.Header, o.cfg.Backend.SSOHeaders),
		MaxResponseBytes: o.cfg.Backend.MaxResponseBytes(),
	})
	if err != nil {
		return nil, err
	}

	queryString := livelink.BuildQuery(req.QueryText, req.ImpersonatedUser, req.StartIndex, req.PageSize, req.ExtraParams)
	if pageSize, ok := livelink.ExtractPageSize(queryString); ok {
		opts.PageSize = pageSize
	}
	opts.BrowseURL = client.QueryURL(livelink.ToBrowserUsage(queryString))

	if !req.UseSSO {
		cred, err := o.creds.Lookup(ctx, req.TargetAppID, backendHost(req))
		if err != nil {
			return nil, err
		}
		err = o.metrics.observeBackend(stepLogin, func() error {
			return client.Authenticate(ctx, cred)
		})
		if err != nil {
			return nil, err
		}
	}

	var page *livelink.ResultPage
	err = o.metrics.observeBackend(stepQuery, func() error {
		body, err := client.ExecuteQuery(ctx, queryString)
		if err != nil {
			return err
		}
		defer body.Close()
		page, err = livelink.Parse(body)
		return err
	})
	if err != nil {
		return nil, err
	}

	if req.Format == FormatHTML {
		out, err := render.HTML(page, opts)
		if err != nil {
			return nil, &llerrors.Error{Kind: llerrors.KindInternal, Message: "could not render results", Err: err}
		}
		return newResponse(http.StatusOK, opts.ContentType(render.ContentTypeHTML), out), nil
	}
	out, err := render.RSS(page, opts)
	if err != nil {
		return nil, &llerrors.Error{Kind: llerrors.KindInternal, Message: "could not render results", Err: err}
	}
	return newResponse(http.StatusOK, opts.ContentType(render.ContentTypeRSS), out), nil
}

func (o *Orchestrator) presentError(presentation Presentation, err error, in Inbound, opts render.Options) *Response {
	llErr := llerrors.As(err)
	message := llerrors.PublicMessage(err)
	switch presentation {
	case PresentHTML:
		out, renderErr := render.HTMLError(llErr.Title(), message, diagnosticDetail(llErr), in.RequestID, opts)
		if renderErr == nil {
			return newResponse(http.StatusOK, opts.ContentType(render.ContentTypeHTML), out)
		}
	case PresentHit:
		out, renderErr := render.RSSError(llErr.Title(), message, opts)
		if renderErr == nil {
			return newResponse(http.StatusOK, opts.ContentType(render.ContentTypeRSS), out)
		}
	}
	resp := newResponse(http.StatusInternalServerError, render.ContentTypeText+"; charset=utf-8", []byte(message+"\n"))
	resp.Header.Set(headerStatusDescription, headerSafe(message))
	return resp
}

func (o *Orchestrator) baseOptions(in Inbound) render.Options {
	opts := render.Options{
		QueryText:        strings.TrimSpace(params(in.Query).get("query")),
		MaxSummaryLength: o.cfg.Defaults.MaxSummaryLength,
		IconURL:          o.cfg.Defaults.IconURL,
		SelfURL:          in.URL,
	}
	if base := o.PublicBaseURL(in.URL); base != "" {
		opts.DescriptorURL = descriptor.Link(base+DescriptorPath, descriptor.FixedParams(in.Query))
	}
	return opts
}

// PublicBaseURL is the configured public URL, or the scheme and host of the
// inbound request.
func (o *Orchestrator) PublicBaseURL(requestURL *url.URL) string {
	if o.cfg.PublicURL != "" {
		return o.cfg.PublicURL
	}
	if requestURL == nil || requestURL.Host == "" {
		return ""
	}
	scheme := requestURL.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + requestURL.Host
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() *Config {
	return o.cfg
}

func newResponse(status int, contentType string, body []byte) *Response {
	header := http.Header{}
	header.Set("Content-Type", contentType)
	return &Response{StatusCode: status, Header: header, Body: body}
}

func diagnosticDetail(err *llerrors.Error) string {
	parts := make([]string, 0, 2)
	if err.Detail != "" {
		parts = append(parts, err.Detail)
	}
	if err.Err != nil && err.Err.Error() != err.Message {
		parts = append(parts, err.Err.Error())
	}
	return strings.Join(parts, "\n")
}

func headerSafe(value string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' || r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, value)
}

func backendHost(req *SearchRequest) string {
	if req == nil {
		return ""
	}
	u, err := url.Parse(req.BackendURL)
	if err != nil {
		return ""
	}
	return u.Host
}
