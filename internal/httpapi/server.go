// Package httpapi exposes the quoting pipeline over JSON HTTP. Handlers
// stay thin: decode, call the engine, encode. All domain decisions live
// in the packages behind it.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/contractoros/quote-engine/internal/pipeline"
	"github.com/contractoros/quote-engine/internal/report"
)

// maxBodyBytes bounds request bodies; image payloads dominate the budget.
const maxBodyBytes = 10 << 20

type Server struct {
	engine      *pipeline.Engine
	pdf         *report.ChromiumPDFRenderer
	corsOrigin  string
	catalogSize int
}

type Option func(*Server)

// WithCORSOrigin sets the Access-Control-Allow-Origin header value.
// Empty disables CORS headers entirely.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

func WithPDFRenderer(r *report.ChromiumPDFRenderer) Option {
	return func(s *Server) { s.pdf = r }
}

// WithCatalogSize reports the loaded entry count on the health route.
func WithCatalogSize(n int) Option {
	return func(s *Server) { s.catalogSize = n }
}

func NewServer(engine *pipeline.Engine, opts ...Option) http.Handler {
	s := &Server{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/normalize", s.handleNormalize)
	mux.HandleFunc("/v1/prices", s.handlePrices)
	mux.HandleFunc("/v1/quote", s.handleQuote)
	mux.HandleFunc("/v1/quote/report", s.handleQuoteReport)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return s.withMiddleware(mux)
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// quoteRequest is the shared request body. Image fields are only honored
// when an AI normalizer is configured.
type quoteRequest struct {
	Text           string `json:"text"`
	ImageBase64    string `json:"image_base64"`
	ImageMediaType string `json:"image_media_type"`
	Location       string `json:"location"`
	MarkupPct      string `json:"markup_pct"`
	TaxPct         string `json:"tax_pct"`
}

func (req quoteRequest) input() (pipeline.Input, error) {
	in := pipeline.Input{Text: req.Text}
	if req.ImageBase64 != "" {
		blob, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return pipeline.Input{}, newValidationError("image_base64 is not valid base64")
		}
		in.Image = blob
		in.ImageMediaType = req.ImageMediaType
		if in.ImageMediaType == "" {
			in.ImageMediaType = "image/png"
		}
	}
	return in, nil
}

// percent parses an optional percentage field, empty meaning def.
func percent(field, value string, def decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, newValidationError(field + " is not a number")
	}
	return d, nil
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req quoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.engine.Normalize(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req quoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Location) == "" {
		writeError(w, newValidationError("location is required"))
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.engine.Price(r.Context(), in, req.Location)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	res, ok := s.runQuote(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuoteReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.runQuote(w, r)
	if !ok {
		return
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		doc, err := report.HTML(res)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, doc)
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, report.Markdown(res))
	case "pdf":
		if s.pdf == nil || !s.pdf.Available() {
			writeError(w, newError(CodeNotFound, "pdf rendering is not available"))
			return
		}
		blob, err := s.pdf.Render(r.Context(), res)
		if err != nil {
			log.Error().Err(err).Msg("pdf render failed")
			writeError(w, newError(CodeInternal, "pdf render failed"))
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="quote-`+res.Quote.ID+`.pdf"`)
		_, _ = w.Write(blob)
	default:
		writeError(w, newValidationError("format must be html, markdown, or pdf"))
	}
}

// runQuote handles the shared decode-and-quote path; false means a
// response was already written.
func (s *Server) runQuote(w http.ResponseWriter, r *http.Request) (pipeline.QuoteResponse, bool) {
	if !methodOnly(w, r, http.MethodPost) {
		return pipeline.QuoteResponse{}, false
	}
	var req quoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return pipeline.QuoteResponse{}, false
	}
	if strings.TrimSpace(req.Location) == "" {
		writeError(w, newValidationError("location is required"))
		return pipeline.QuoteResponse{}, false
	}
	in, err := req.input()
	if err != nil {
		writeError(w, err)
		return pipeline.QuoteResponse{}, false
	}
	markup, err := percent("markup_pct", req.MarkupPct, decimal.Zero)
	if err != nil {
		writeError(w, err)
		return pipeline.QuoteResponse{}, false
	}
	tax, err := percent("tax_pct", req.TaxPct, decimal.Zero)
	if err != nil {
		writeError(w, err)
		return pipeline.QuoteResponse{}, false
	}
	res, err := s.engine.Quote(r.Context(), in, req.Location, markup, tax)
	if err != nil {
		writeError(w, err)
		return pipeline.QuoteResponse{}, false
	}
	return res, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"catalog_entries": s.catalogSize,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)
	writeJSON(w, apiErr.Status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

func decodeBody(r *http.Request, dst any) error {
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return newValidationError("read body: " + err.Error())
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		return newValidationError("invalid json: " + err.Error())
	}
	return nil
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}
