// quoted serves the materials quoting API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/contractoros/quote-engine/internal/catalog"
	"github.com/contractoros/quote-engine/internal/httpapi"
	"github.com/contractoros/quote-engine/internal/match"
	"github.com/contractoros/quote-engine/internal/normalize"
	"github.com/contractoros/quote-engine/internal/pipeline"
	"github.com/contractoros/quote-engine/internal/pricing"
	"github.com/contractoros/quote-engine/internal/report"
	"github.com/contractoros/quote-engine/pkg/logx"
)

type appConfig struct {
	Environment string  `envconfig:"QUOTE_ENV" default:"development"`
	Addr        string  `envconfig:"QUOTE_ADDR" default:":8080"`
	CatalogPath string  `envconfig:"QUOTE_CATALOG" default:"./data/catalog.json"`
	CORSOrigin  string  `envconfig:"QUOTE_CORS_ORIGIN"`
	Threshold   float64 `envconfig:"QUOTE_MATCH_THRESHOLD" default:"0.6"`
	AITimeout   string  `envconfig:"QUOTE_AI_TIMEOUT" default:"20s"`
	OTLPAddr    string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func main() {
	catalogFlag := flag.String("catalog", "", "path to catalog file (overrides QUOTE_CATALOG)")
	addrFlag := flag.String("addr", "", "listen address (overrides QUOTE_ADDR)")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg appConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("process environment config")
	}
	if *catalogFlag != "" {
		cfg.CatalogPath = *catalogFlag
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	logx.Init(logx.LoggerOpts{Environment: logx.Environment(cfg.Environment)})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing := initTracing(ctx, cfg.OTLPAddr)
	defer shutdownTracing()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("load catalog")
	}
	log.Info().Int("entries", cat.Len()).Str("path", cfg.CatalogPath).Msg("catalog loaded")

	matchCfg := match.DefaultConfig()
	if cfg.Threshold > 0 {
		matchCfg.Threshold = cfg.Threshold
	}
	canon, err := match.NewCanonicalizer(cat, matchCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build canonicalizer")
	}

	var ai normalize.Normalizer
	if a, err := normalize.NewAnthropicNormalizerFromEnv(); err != nil {
		log.Warn().Err(err).Msg("ai normalizer disabled, text requests use rule parsing only")
	} else {
		if d, perr := time.ParseDuration(cfg.AITimeout); perr == nil {
			a = a.WithTimeout(d)
		}
		ai = a
		log.Info().Msg("ai normalizer enabled")
	}

	engine := pipeline.NewEngine(
		normalize.NewFallback(ai, normalize.NewRuleNormalizer()),
		canon,
		pricing.NewAggregator(cat),
	)

	pdf := report.NewChromiumPDFRenderer()
	if !pdf.Available() {
		log.Warn().Msg("chromium not found, pdf reports disabled")
	}

	handler := httpapi.NewServer(engine,
		httpapi.WithCORSOrigin(cfg.CORSOrigin),
		httpapi.WithPDFRenderer(pdf),
		httpapi.WithCatalogSize(cat.Len()),
	)

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Addr).Msg("quoted listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server")
	}
}

// initTracing wires the OTLP exporter when an endpoint is configured;
// otherwise spans stay no-op. The returned func flushes on shutdown.
func initTracing(ctx context.Context, endpoint string) func() {
	if endpoint == "" {
		return func() {}
	}
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		log.Warn().Err(err).Msg("otlp exporter init failed, tracing disabled")
		return func() {}
	}
	res := sdkresource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName("quote-engine"),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = tp.Shutdown(flushCtx)
	}
}
