package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/beeper/livelink-bridge/pkg/credstore"
	"github.com/beeper/livelink-bridge/pkg/descriptor"
	"github.com/beeper/livelink-bridge/pkg/search"
	"github.com/beeper/livelink-bridge/pkg/server"
	"github.com/beeper/livelink-bridge/pkg/shared/stringutil"
)

const cliAppID = "cli"

func loadConfig(cmd *cli.Command) (*search.Config, error) {
	return search.LoadConfig(cmd.String("config"), cmd.String("env"))
}

func newLogger(cfg search.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	var log zerolog.Logger
	switch cfg.Format {
	case "console":
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	case "json":
		log = zerolog.New(os.Stderr)
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return log.Level(level).With().Timestamp().Logger(), nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen := cmd.String("listen"); listen != "" {
		cfg.Listen = listen
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	creds := credstore.NewStatic(cfg.CredentialEntries())
	orch := search.NewOrchestrator(cfg, creds, search.NewMetrics(registry), log)
	srv := server.New(server.Config{Orchestrator: orch, Registry: registry, Log: log})

	log.Info().
		Str("version", Tag).
		Int("applications", creds.Len()).
		Msg("Starting Livelink bridge")
	return srv.ListenAndServe(ctx, cfg.Listen)
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "search terms", Required: true},
		&cli.StringFlag{Name: "livelink-url", Usage: "Livelink CGI URL", Required: true},
		&cli.BoolFlag{Name: "sso", Usage: "forward --authorization instead of logging in"},
		&cli.StringFlag{Name: "authorization", Usage: "Authorization header forwarded with --sso"},
		&cli.StringFlag{Name: "app-id", Usage: "targetAppID from the config's credentials"},
		&cli.StringFlag{Name: "username", Usage: "privileged Livelink account, instead of --app-id"},
		&cli.StringFlag{Name: "password-env", Usage: "environment variable holding the --username password", Value: "LIVELINK_PASSWORD"},
		&cli.StringFlag{Name: "login-pattern", Usage: "login pattern for impersonation", Value: "{user}"},
		&cli.StringFlag{Name: "identity", Usage: "caller identity to impersonate"},
		&cli.IntFlag{Name: "start-index", Usage: "0-based result offset"},
		&cli.IntFlag{Name: "count", Usage: "page size, 0 for the backend default"},
		&cli.StringFlag{Name: "extra-params", Usage: "raw query string appended to the backend request"},
		&cli.StringFlag{Name: "max-summary-length", Usage: "summary length limit, <= 0 for unlimited"},
		&cli.StringFlag{Name: "format", Usage: "xml or html", Value: "xml"},
		&cli.StringFlag{Name: "output-encoding", Usage: "ASCII or UTF-8"},
		&cli.BoolFlag{Name: "report-error-as-hit", Usage: "report failures as a single RSS item"},
		&cli.BoolFlag{Name: "ignore-ssl-warnings", Usage: "skip TLS certificate validation"},
	}
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("query", cmd.String("query"))
	params.Set("livelinkUrl", cmd.String("livelink-url"))
	params.Set("useSSO", strconv.FormatBool(cmd.Bool("sso")))
	params.Set("startIndex", strconv.Itoa(int(cmd.Int("start-index"))))
	params.Set("count", strconv.Itoa(int(cmd.Int("count"))))
	params.Set("format", cmd.String("format"))
	params.Set("reportErrorAsHit", strconv.FormatBool(cmd.Bool("report-error-as-hit")))
	params.Set("ignoreSSLWarnings", strconv.FormatBool(cmd.Bool("ignore-ssl-warnings")))
	setIfNotEmpty(params, "extraParams", cmd.String("extra-params"))
	setIfNotEmpty(params, "maxSummaryLength", cmd.String("max-summary-length"))
	setIfNotEmpty(params, "outputEncoding", cmd.String("output-encoding"))

	header := http.Header{}
	var creds credstore.Store = credstore.NewStatic(cfg.CredentialEntries())
	if cmd.Bool("sso") {
		if auth := cmd.String("authorization"); auth != "" {
			header.Set("Authorization", auth)
		}
	} else {
		appID := cmd.String("app-id")
		if username := cmd.String("username"); username != "" {
			appID = cliAppID
			creds = credstore.NewStatic(map[string]credstore.Entry{
				cliAppID: {
					Username:     username,
					PasswordEnv:  cmd.String("password-env"),
					AllowedHosts: []string{hostOf(cmd.String("livelink-url"))},
				},
			})
		}
		params.Set("targetAppID", appID)
		params.Set("loginPattern", cmd.String("login-pattern"))
		setIfNotEmpty(header, cfg.Backend.IdentityHeader, cmd.String("identity"))
	}

	requestID := xid.New().String()
	log = log.With().Str("request_id", requestID).Logger()
	orch := search.NewOrchestrator(cfg, creds, nil, log)
	resp := orch.Run(ctx, search.Inbound{Query: params, Header: header, RequestID: requestID})
	if _, err := os.Stdout.Write(resp.Body); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return cli.Exit(fmt.Sprintf("search failed: HTTP %d %s", resp.StatusCode, resp.Header.Get("X-Status-Description")), 1)
	}
	return nil
}

func descriptorAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	publicURL := strings.TrimRight(strings.TrimSpace(stringutil.FirstNonEmpty(cmd.String("public-url"), cfg.PublicURL)), "/")
	if publicURL == "" {
		return cli.Exit("a public URL is required: set public_url in the config or pass --public-url", 1)
	}

	params := url.Values{}
	for key, value := range cfg.Descriptor.Params {
		params.Set(key, value)
	}
	setIfNotEmpty(params, "livelinkUrl", cmd.String("livelink-url"))
	setIfNotEmpty(params, "targetAppID", cmd.String("app-id"))
	setIfNotEmpty(params, "loginPattern", cmd.String("login-pattern"))
	if cmd.Bool("sso") {
		params.Set("useSSO", "true")
	}

	body, err := descriptor.Render(descriptor.Options{
		ShortName:   cfg.Descriptor.ShortName,
		Description: cfg.Descriptor.Description,
		Contact:     cfg.Descriptor.Contact,
		ImageURL:    cfg.Descriptor.ImageURL,
		SearchURL:   publicURL + search.SearchPath,
		Params:      params,
	})
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(body)
	return err
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return u.Host
}

type setter interface {
	Set(key, value string)
}

func setIfNotEmpty(dst setter, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		dst.Set(key, value)
	}
}
