package search

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/beeper/livelink-bridge/pkg/llerrors"
	"github.com/beeper/livelink-bridge/pkg/loginmap"
	"github.com/beeper/livelink-bridge/pkg/shared/stringutil"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("param"); name != "" && name != "-" {
			return name
		}
		return field.Name
	})
	return v
}

// ParseRequest builds a SearchRequest from inbound parameters. Parameter
// names are matched case-insensitively. Every failure is a validation error
// and happens before any backend call.
func ParseRequest(values url.Values, header http.Header, cfg *Config) (*SearchRequest, error) {
	cfg = cfg.WithDefaults()
	p := params(values)
	req := &SearchRequest{
		QueryText:      strings.TrimSpace(p.get("query")),
		BackendURL:     strings.TrimSpace(p.get("livelinkUrl")),
		TargetAppID:    strings.TrimSpace(p.get("targetAppID")),
		LoginPattern:   strings.TrimSpace(p.get("loginPattern")),
		ExtraParams:    strings.TrimLeft(strings.TrimSpace(p.get("extraParams")), "?&"),
		InputEncoding:  normalizeEncoding(p.get("inputEncoding")),
		OutputEncoding: normalizeEncoding(p.get("outputEncoding")),
		Language:       strings.TrimSpace(p.get("language")),
		Format:         parseFormat(p.get("format")),
	}

	var err error
	if req.UseSSO, err = stringutil.ParseBoolDefault(p.get("useSSO"), false); err != nil {
		return nil, invalidParam("useSSO", "a boolean")
	}
	if req.IgnoreTLSErrors, err = stringutil.ParseBoolDefault(p.get("ignoreSSLWarnings"), false); err != nil {
		return nil, invalidParam("ignoreSSLWarnings", "a boolean")
	}
	if req.ReportErrorsAsHits, err = stringutil.ParseBoolDefault(p.get("reportErrorAsHit"), false); err != nil {
		return nil, invalidParam("reportErrorAsHit", "a boolean")
	}
	if req.StartIndex, err = stringutil.ParseIntDefault(p.get("startIndex"), 0); err != nil {
		return nil, invalidParam("startIndex", "an integer")
	}
	if req.PageSize, err = stringutil.ParseIntDefault(p.get("count"), 0); err != nil {
		return nil, invalidParam("count", "an integer")
	}
	if req.MaxSummaryLength, err = stringutil.ParseIntDefault(p.get("maxSummaryLength"), cfg.Defaults.MaxSummaryLength); err != nil {
		return nil, invalidParam("maxSummaryLength", "an integer")
	}

	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.IgnoreTLSErrors && !cfg.Backend.IgnoreTLSAllowed() {
		return nil, llerrors.Validation("ignoreSSLWarnings is disabled on this bridge")
	}

	if !req.UseSSO {
		req.CallerIdentity = strings.TrimSpace(header.Get(cfg.Backend.IdentityHeader))
		if req.CallerIdentity == "" {
			return nil, llerrors.Validation("caller identity is missing: the %s header is required when useSSO is false", cfg.Backend.IdentityHeader)
		}
		if req.ImpersonatedUser, err = loginmap.Map(req.LoginPattern, req.CallerIdentity); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// Presentation is how a failed request is reported to the client.
type Presentation int

const (
	// PresentStatus answers with HTTP 500 and the message in X-Status-Description.
	PresentStatus Presentation = iota
	// PresentHit embeds the message as the only item of an RSS feed.
	PresentHit
	// PresentHTML renders a full HTML error page.
	PresentHTML
)

func (p Presentation) String() string {
	switch p {
	case PresentHit:
		return "hit"
	case PresentHTML:
		return "html"
	default:
		return "status"
	}
}

// ChoosePresentation picks the error presentation from raw parameters, so it
// works even when the request itself is invalid.
func ChoosePresentation(values url.Values) Presentation {
	p := params(values)
	if parseFormat(p.get("format")) == FormatHTML {
		return PresentHTML
	}
	if asHit, err := stringutil.ParseBoolDefault(p.get("reportErrorAsHit"), false); err == nil && asHit {
		return PresentHit
	}
	return PresentStatus
}

type params url.Values

func (p params) get(name string) string {
	if values, ok := p[name]; ok && len(values) > 0 {
		return values[0]
	}
	for key, values := range p {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func parseFormat(value string) Format {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return FormatXML
	}
	return Format(value)
}

func normalizeEncoding(value string) string {
	value = strings.TrimSpace(value)
	switch strings.ToUpper(value) {
	case "ASCII":
		return "ASCII"
	case "UTF-8":
		return "UTF-8"
	default:
		return value
	}
}

func invalidParam(name, kind string) error {
	return llerrors.Validation("%s must be %s", name, kind)
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return llerrors.Validation("invalid request: %v", err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return llerrors.Validation("%s", strings.Join(messages, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fe.Field())
	case "http_url":
		return fmt.Sprintf("%s must be an absolute http or https URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must not be negative", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
