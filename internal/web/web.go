// Package web is the HTTP surface: analysis and conversion endpoints,
// job status, package download and the health probe. Conversions run in
// the background; the handler returns a job id immediately and progress
// flows through the status store.
package web

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/local/svg2pptx/internal/analyze"
	"github.com/local/svg2pptx/internal/filetype"
	"github.com/local/svg2pptx/internal/limiter"
	"github.com/local/svg2pptx/internal/metrics"
	"github.com/local/svg2pptx/internal/orchestrator"
	"github.com/local/svg2pptx/internal/pages"
	"github.com/local/svg2pptx/internal/render"
	"github.com/local/svg2pptx/internal/statuscheck"
	"github.com/local/svg2pptx/internal/storage"
	"github.com/local/svg2pptx/internal/store"
	"github.com/local/svg2pptx/internal/strategy"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// Dependencies wires the service's collaborators. Packages is optional;
// when nil finished packages live only in the result directory.
type Dependencies struct {
	Analyzer    *analyze.Analyzer
	Recommender *strategy.Recommender
	Detector    *pages.Detector
	Renderer    render.Renderer
	Writer      orchestrator.PackageWriter
	Sniffer     *filetype.Detector
	Status      store.StatusStore
	Limiter     *limiter.Limiter
	Checker     *statuscheck.Checker
	Packages    *storage.PackageStore
	Fetcher     *Fetcher
}

// Options tunes the service.
type Options struct {
	MaxUploadMB int
	ResultDir   string
	CacheTTL    time.Duration
	Convert     orchestrator.Options
}

// Service handles the /v1 API.
type Service struct {
	deps  Dependencies
	opts  Options
	cache *gocache.Cache // analysis reports keyed by content hash
}

func New(deps Dependencies, opts Options) *Service {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 32
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		deps:  deps,
		opts:  opts,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/analyze", s.rateLimited(s.handleAnalyze))
	mux.HandleFunc("/v1/convert", s.rateLimited(s.handleConvert))
	mux.HandleFunc("/v1/jobs/", s.rateLimited(s.handleJobs))
	mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Service) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Limiter != nil && !s.deps.Limiter.Allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleAnalyze scores one SVG document. Reports are cached by content
// hash so repeated probes of the same document are free.
func (s *Service) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	key := contentKey(data)
	if cached, found := s.cache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	report := s.deps.Analyzer.AnalyzeBytes(data)
	metrics.ObserveComplexity(report.ComplexityScore)
	recs := s.deps.Recommender.Recommend(report, s.opts.Convert.Preference)

	resp := analyzeResponse{Report: report, Recommendations: recs}
	s.cache.Set(key, resp, gocache.DefaultExpiration)
	writeJSON(w, http.StatusOK, resp)
}

type analyzeResponse struct {
	Report          *analyze.Report           `json:"report"`
	Recommendations []strategy.Recommendation `json:"recommendations"`
}

type convertRequest struct {
	Refs       []string `json:"refs"`
	Preference string   `json:"preference,omitempty"`
	Debug      bool     `json:"debug,omitempty"`
}

type convertAccepted struct {
	ID    string `json:"id"`
	Pages int    `json:"pages"`
}

// handleConvert accepts either a multipart upload (field "files", one or
// more SVG documents) or a JSON body of refs to fetch, splits the input
// into pages and starts a background conversion job.
func (s *Service) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	opts := s.opts.Convert
	var srcs []pages.Source
	var ok bool
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		srcs, ok = s.sourcesFromMultipart(w, r, &opts)
	} else {
		srcs, ok = s.sourcesFromJSON(w, r, &opts)
	}
	if !ok {
		return
	}
	if len(srcs) == 0 {
		writeError(w, http.StatusBadRequest, "no pages detected in input")
		return
	}

	release := func() {}
	if s.deps.Limiter != nil {
		var acquired bool
		release, acquired = s.deps.Limiter.Acquire()
		if !acquired {
			writeError(w, http.StatusServiceUnavailable, "conversion capacity exhausted, retry later")
			return
		}
	}

	jobID := uuid.NewString()
	now := time.Now()
	s.setStatus(r.Context(), jobID, store.Status{
		State:    store.StateQueued,
		Pages:    len(srcs),
		Start:    &now,
		Metadata: map[string]interface{}{"detection": srcs[0].Metadata["detection"]},
	})

	go s.runJob(jobID, srcs, opts, release)

	writeJSON(w, http.StatusAccepted, convertAccepted{ID: jobID, Pages: len(srcs)})
}

// runJob drives one conversion to completion. It owns its own context:
// the client request ending must not cancel the job.
func (s *Service) runJob(jobID string, srcs []pages.Source, opts orchestrator.Options, release func()) {
	defer release()
	metrics.JobStarted()
	defer metrics.JobFinished()

	ctx := context.Background()
	start := time.Now()
	s.setStatus(ctx, jobID, store.Status{
		State: store.StateRunning,
		Pages: len(srcs),
		Start: &start,
	})

	deps := orchestrator.Dependencies{
		Renderer:    s.deps.Renderer,
		Writer:      s.deps.Writer,
		Analyzer:    s.deps.Analyzer,
		Recommender: s.deps.Recommender,
		OnProgress: func(done, total int) {
			s.setStatus(ctx, jobID, store.Status{
				State:     store.StateRunning,
				Pages:     total,
				PagesDone: done,
				Progress:  done * 100 / total,
				Start:     &start,
			})
		},
	}
	result, err := orchestrator.New(deps, opts).Convert(ctx, srcs)
	end := time.Now()
	if err != nil {
		log.Error().Str("job", jobID).Err(err).Msg("conversion failed")
		s.setStatus(ctx, jobID, store.Status{
			State: store.StateFailed,
			Pages: len(srcs),
			Error: err.Error(),
			Start: &start,
			End:   &end,
		})
		return
	}

	path, err := storage.SaveLocal(s.opts.ResultDir, jobID+".pptx", result.Bytes)
	if err != nil {
		log.Error().Str("job", jobID).Err(err).Msg("saving package failed")
		s.setStatus(ctx, jobID, store.Status{
			State: store.StateFailed,
			Pages: len(srcs),
			Error: err.Error(),
			Start: &start,
			End:   &end,
		})
		return
	}

	if s.deps.Packages != nil {
		key := "packages/" + jobID + ".pptx"
		if err := s.deps.Packages.Upload(ctx, key, result.Bytes, map[string]string{"job-id": jobID}); err != nil {
			log.Warn().Str("job", jobID).Err(err).Msg("S3 upload failed, package kept locally")
		}
	}

	meta := map[string]interface{}{
		"total_elements":    result.TotalElements,
		"native_elements":   result.TotalNative,
		"emf_elements":      result.TotalEMF,
		"avg_quality":       result.AvgQuality,
		"avg_performance":   result.AvgPerformance,
		"package_bytes":     result.PackageSizeBytes,
		"compression_ratio": result.CompressionRatio,
	}
	if result.Debug != nil {
		meta["debug"] = result.Debug
	}
	s.setStatus(ctx, jobID, store.Status{
		State:     store.StateCompleted,
		Progress:  100,
		Pages:     len(srcs),
		PagesDone: result.PageCount,
		Package:   path,
		Start:     &start,
		End:       &end,
		Metadata:  meta,
	})
	log.Info().
		Str("job", jobID).
		Int("pages", result.PageCount).
		Dur("duration", end.Sub(start)).
		Msg("job complete")
}

// handleJobs serves /v1/jobs/{id} and /v1/jobs/{id}/package.
func (s *Service) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	jobID, sub, _ := strings.Cut(rest, "/")
	if jobID == "" {
		writeError(w, http.StatusNotFound, "job id required")
		return
	}

	st, found, err := s.deps.Status.Get(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}

	switch sub {
	case "":
		writeJSON(w, http.StatusOK, st)
	case "package":
		s.servePackage(w, r, jobID, st)
	default:
		writeError(w, http.StatusNotFound, "unknown resource")
	}
}

func (s *Service) servePackage(w http.ResponseWriter, r *http.Request, jobID string, st store.Status) {
	if st.State != store.StateCompleted {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is %s", st.State))
		return
	}
	if st.Package == "" {
		writeError(w, http.StatusNotFound, "package not available")
		return
	}
	w.Header().Set("Content-Type", pptxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(st.Package)))
	http.ServeFile(w, r, st.Package)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	summary := s.deps.Checker.Summary(r.Context())
	code := http.StatusOK
	if !s.deps.Checker.Healthy(r.Context()) {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, summary)
}

// readUpload extracts one SVG payload from either a multipart form
// (field "file") or a raw request body. It sniffs the content and
// rejects anything that is not SVG.
func (s *Service) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	maxBytes := int64(s.opts.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	var data []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, false
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return nil, false
		}
		defer file.Close()
		data, err = io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading upload failed")
			return nil, false
		}
	} else {
		var err error
		data, err = io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, false
		}
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty body")
		return nil, false
	}

	_, payload, err := s.deps.Sniffer.Detect(data)
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return nil, false
	}
	return payload, true
}

// sourcesFromMultipart turns uploaded files into page sources: one file
// is split by the page detector, several files become one page each.
func (s *Service) sourcesFromMultipart(w http.ResponseWriter, r *http.Request, opts *orchestrator.Options) ([]pages.Source, bool) {
	maxBytes := int64(s.opts.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return nil, false
	}
	if pref := r.FormValue("preference"); pref != "" {
		opts.Preference = strategy.ParsePreference(pref)
	}
	if r.FormValue("debug") == "true" {
		opts.Debug = true
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files in upload")
		return nil, false
	}

	var inputs []pages.BatchInput
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading upload failed")
			return nil, false
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading upload failed")
			return nil, false
		}
		_, payload, err := s.deps.Sniffer.Detect(data)
		if err != nil {
			writeError(w, http.StatusUnsupportedMediaType,
				fmt.Sprintf("%s: %v", hdr.Filename, err))
			return nil, false
		}
		inputs = append(inputs, pages.BatchInput{Name: hdr.Filename, Content: payload})
	}

	if len(inputs) == 1 {
		return s.deps.Detector.DetectPages(inputs[0].Content), true
	}
	return s.deps.Detector.DetectBatch(inputs), true
}

// sourcesFromJSON resolves the request's refs and builds page sources
// the same way the multipart path does.
func (s *Service) sourcesFromJSON(w http.ResponseWriter, r *http.Request, opts *orchestrator.Options) ([]pages.Source, bool) {
	var req convertRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if len(req.Refs) == 0 {
		writeError(w, http.StatusBadRequest, "refs required")
		return nil, false
	}
	if req.Preference != "" {
		opts.Preference = strategy.ParsePreference(req.Preference)
	}
	if req.Debug {
		opts.Debug = true
	}

	var inputs []pages.BatchInput
	for _, ref := range req.Refs {
		data, name, err := s.deps.Fetcher.Fetch(r.Context(), ref)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("fetch %s: %v", ref, err))
			return nil, false
		}
		_, payload, err := s.deps.Sniffer.Detect(data)
		if err != nil {
			writeError(w, http.StatusUnsupportedMediaType,
				fmt.Sprintf("%s: %v", ref, err))
			return nil, false
		}
		inputs = append(inputs, pages.BatchInput{Name: name, Content: payload})
	}

	if len(inputs) == 1 {
		return s.deps.Detector.DetectPages(inputs[0].Content), true
	}
	return s.deps.Detector.DetectBatch(inputs), true
}

func (s *Service) setStatus(ctx context.Context, jobID string, st store.Status) {
	if err := s.deps.Status.Set(ctx, jobID, st); err != nil {
		log.Warn().Str("job", jobID).Err(err).Msg("status update failed")
	}
}

func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
