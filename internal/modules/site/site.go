// Package site serves the HTMX front end: the analysis form, incremental
// status polling, the result view and the PDF download.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/strategiq/swot/internal/config"
	"github.com/strategiq/swot/internal/middleware"
	"github.com/strategiq/swot/internal/models"
	"github.com/strategiq/swot/internal/modules/analysis"
	"github.com/strategiq/swot/internal/modules/report"
	"github.com/strategiq/swot/internal/pkg/pdfcache"
	"github.com/strategiq/swot/internal/pkg/response"
	"github.com/strategiq/swot/internal/pkg/runstore"
	"github.com/strategiq/swot/internal/pkg/session"
	"go.uber.org/zap"
)

const (
	AnalyzingMessage        = "Analyzing..."
	AnalysisCompleteMessage = "Analysis Complete"
	errorMessagePrefix      = "Unexpected error: "

	msgNoAnalysis  = "No analysis found. Please run an analysis first."
	msgNotComplete = "Analysis not complete. Please wait for analysis to finish."

	// HeaderPDFCache reports whether a download was served from the cache.
	HeaderPDFCache = "X-PDF-Cache"

	htmlContentType = "text/html; charset=utf-8"
)

// Runner performs one analysis, reporting progress as it goes.
type Runner interface {
	Run(ctx context.Context, req analysis.Request, progress analysis.Reporter) (*models.SwotAnalysis, error)
}

// HistoryRecorder persists completed analyses.
type HistoryRecorder interface {
	Record(ctx context.Context, sessionID string, a *models.SwotAnalysis) (*models.AnalysisRecord, error)
}

// Archiver copies freshly rendered reports to long-term storage.
type Archiver interface {
	UploadAsync(ctx context.Context, sessionID, fingerprint string, pdf []byte)
}

type Options struct {
	Runs     *runstore.Store
	Cache    *pdfcache.Cache
	Runner   Runner
	Sessions *session.Manager
	History  HistoryRecorder
	Archiver Archiver

	Input        config.InputLimitsConfig
	StatusDelay  [2]time.Duration // min, max pause before each progress message
	PDFTimeout   time.Duration
	SecureCookie bool

	// BaseContext bounds background analyses; cancel it on shutdown.
	BaseContext context.Context
	Logger      *zap.Logger
	Render      func(ctx context.Context, a models.SwotAnalysis) ([]byte, error)
	Now         func() time.Time
}

type Handler struct {
	runs     *runstore.Store
	cache    *pdfcache.Cache
	runner   Runner
	sessions *session.Manager
	history  HistoryRecorder
	archiver Archiver

	input        config.InputLimitsConfig
	delayMin     time.Duration
	delayMax     time.Duration
	pdfTimeout   time.Duration
	secureCookie bool

	baseCtx context.Context
	log     *zap.Logger
	render  func(ctx context.Context, a models.SwotAnalysis) ([]byte, error)
	now     func() time.Time

	wg sync.WaitGroup
}

func NewHandler(opts Options) *Handler {
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Render == nil {
		opts.Render = report.RenderContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PDFTimeout <= 0 {
		opts.PDFTimeout = time.Minute
	}
	delayMin, delayMax := opts.StatusDelay[0], opts.StatusDelay[1]
	if delayMax < delayMin {
		delayMax = delayMin
	}
	return &Handler{
		runs:         opts.Runs,
		cache:        opts.Cache,
		runner:       opts.Runner,
		sessions:     opts.Sessions,
		history:      opts.History,
		archiver:     opts.Archiver,
		input:        opts.Input,
		delayMin:     delayMin,
		delayMax:     delayMax,
		pdfTimeout:   opts.PDFTimeout,
		secureCookie: opts.SecureCookie,
		baseCtx:      opts.BaseContext,
		log:          opts.Logger,
		render:       opts.Render,
		now:          opts.Now,
	}
}

// RegisterRoutes mounts the pages on r. submitMW wraps POST /analyze only.
func (h *Handler) RegisterRoutes(r gin.IRouter, submitMW ...gin.HandlerFunc) {
	r.GET("/", h.index)
	r.POST("/analyze", append(submitMW, h.analyze)...)
	r.GET("/status", h.status)
	r.GET("/result", h.result)
	r.GET("/download-pdf", h.downloadPDF)

	r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
}

// RegisterCacheRoutes mounts the PDF cache stats and flush endpoints on api,
// behind adminMW.
func (h *Handler) RegisterCacheRoutes(api gin.IRouter, adminMW ...gin.HandlerFunc) {
	g := api.Group("/pdf-cache", adminMW...)
	g.GET("/stats", h.cacheStats)
	g.DELETE("", h.clearCache)
}

// Wait blocks until every background analysis has returned.
func (h *Handler) Wait() { h.wg.Wait() }

// GET /
func (h *Handler) index(c *gin.Context) {
	h.html(c, http.StatusOK, "index.html", h.input)
}

// POST /analyze
func (h *Handler) analyze(c *gin.Context) {
	req, err := analysis.ParseRequest(c.PostForm("primary_entity"), c.PostForm("comparison_entities"), h.input)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	if prev := middleware.AnalysisID(c); prev != "" {
		if n := h.cache.Invalidate(prev); n > 0 {
			h.log.Info("invalidated pdf cache for previous analysis", zap.String("session", prev), zap.Int("entries", n))
		}
	}

	id := session.NewID()
	if err := middleware.BindAnalysis(c, h.sessions, id, h.secureCookie); err != nil {
		response.InternalError(c, err)
		return
	}
	if _, err := h.runs.Start(ctx, id, req.Primary, req.Comparisons); err != nil {
		response.InternalError(c, err)
		return
	}
	if err := h.runs.Append(ctx, id, AnalyzingMessage); err != nil {
		response.InternalError(c, err)
		return
	}

	h.log.Info("starting analysis",
		zap.String("session", id),
		zap.String("primary", req.Primary),
		zap.Strings("comparisons", req.Comparisons),
	)
	h.launch(id, req)
	c.Data(http.StatusOK, htmlContentType, nil)
}

func (h *Handler) launch(id string, req analysis.Request) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.execute(h.baseCtx, id, req)
	}()
}

func (h *Handler) execute(ctx context.Context, id string, req analysis.Request) {
	log := h.log.With(zap.String("session", id))
	// Final bookkeeping must land even when ctx is cancelled at shutdown.
	saveCtx := context.WithoutCancel(ctx)

	if err := h.runs.UpdateStatus(ctx, id, runstore.RunRunning, ""); err != nil {
		log.Warn("mark run running", zap.Error(err))
	}

	result, err := h.runner.Run(ctx, req, h.progress(ctx, id, log))
	if err != nil {
		log.Error("analysis failed", zap.Error(err))
		h.appendStatus(saveCtx, id, errorMessagePrefix+err.Error(), log)
		if err := h.runs.UpdateStatus(saveCtx, id, runstore.RunFailed, err.Error()); err != nil {
			log.Warn("mark run failed", zap.Error(err))
		}
		return
	}

	if err := h.runs.SetResult(saveCtx, id, result); err != nil {
		log.Error("store analysis result", zap.Error(err))
		h.appendStatus(saveCtx, id, errorMessagePrefix+err.Error(), log)
		if err := h.runs.UpdateStatus(saveCtx, id, runstore.RunFailed, err.Error()); err != nil {
			log.Warn("mark run failed", zap.Error(err))
		}
		return
	}
	h.appendStatus(saveCtx, id, AnalysisCompleteMessage, log)
	log.Info("analysis complete", zap.String("primary", result.PrimaryEntity))

	if h.history != nil {
		if _, err := h.history.Record(saveCtx, id, result); err != nil {
			log.Warn("record analysis history", zap.Error(err))
		}
	}
}

// progress returns the Reporter for one run. Each message is published after
// a random pause so tool steps appear one by one on the timeline.
func (h *Handler) progress(ctx context.Context, id string, log *zap.Logger) analysis.Reporter {
	return func(msg string) {
		if d := h.statusDelay(); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		h.appendStatus(ctx, id, msg, log)
	}
}

func (h *Handler) statusDelay() time.Duration {
	if h.delayMax <= h.delayMin {
		return h.delayMin
	}
	return h.delayMin + rand.N(h.delayMax-h.delayMin+1)
}

func (h *Handler) appendStatus(ctx context.Context, id, msg string, log *zap.Logger) {
	if err := h.runs.Append(ctx, id, msg); err != nil {
		log.Warn("append status", zap.String("message", msg), zap.Error(err))
	}
}

type statusItem struct {
	Message string
	IsLast  bool
	Done    bool
	Failed  bool
}

// GET /status returns only the messages added since the previous poll. The
// first delivery also carries the timeline container.
func (h *Handler) status(c *gin.Context) {
	id := middleware.AnalysisID(c)
	if id == "" {
		c.Data(http.StatusOK, htmlContentType, nil)
		return
	}

	msgs, first, err := h.runs.NextMessages(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if len(msgs) == 0 {
		c.Data(http.StatusOK, htmlContentType, nil)
		return
	}

	items := make([]statusItem, len(msgs))
	for i, msg := range msgs {
		items[i] = statusItem{
			Message: msg,
			IsLast:  i == len(msgs)-1,
			Done:    msg == AnalysisCompleteMessage,
			Failed:  strings.HasPrefix(msg, errorMessagePrefix),
		}
	}
	h.html(c, http.StatusOK, "status.html", gin.H{"First": first, "Items": items})
}

// GET /result
func (h *Handler) result(c *gin.Context) {
	var result *models.SwotAnalysis
	if id := middleware.AnalysisID(c); id != "" {
		var err error
		if result, err = h.runs.Result(c.Request.Context(), id); err != nil {
			response.InternalError(c, err)
			return
		}
	}

	data := gin.H{"Result": result}
	if result != nil {
		summary, err := renderMarkdown(result.Analysis)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		data["Summary"] = summary
	}
	h.html(c, http.StatusOK, "result.html", data)
}

// GET /download-pdf
func (h *Handler) downloadPDF(c *gin.Context) {
	id := middleware.AnalysisID(c)
	if id == "" {
		h.log.Warn("pdf download without session")
		response.PlainNotFound(c, msgNoAnalysis)
		return
	}

	result, err := h.runs.Result(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if result == nil {
		h.log.Warn("pdf download before result", zap.String("session", id))
		response.PlainNotFound(c, msgNotComplete)
		return
	}

	pdf, hit := h.cache.Get(id, *result)
	if !hit {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.pdfTimeout)
		defer cancel()

		pdf, err = h.render(ctx, *result)
		if err != nil {
			h.log.Error("pdf generation failed", zap.String("session", id), zap.Error(err))
			if errors.Is(err, context.DeadlineExceeded) {
				response.Error(c, http.StatusGatewayTimeout, "PDF generation timed out")
				return
			}
			response.InternalError(c, err)
			return
		}
		h.cache.Set(id, *result, pdf)
		if h.archiver != nil {
			h.archiver.UploadAsync(h.baseCtx, id, pdfcache.Fingerprint(*result), pdf)
		}
	}

	cacheState := "MISS"
	if hit {
		cacheState = "HIT"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(*result, h.now())))
	c.Header("Cache-Control", "no-cache")
	c.Header(HeaderPDFCache, cacheState)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// GET /api/pdf-cache/stats
func (h *Handler) cacheStats(c *gin.Context) {
	response.OK(c, h.cache.Stats())
}

// DELETE /api/pdf-cache
func (h *Handler) clearCache(c *gin.Context) {
	response.OK(c, gin.H{"cleared": h.cache.Clear()})
}

func (h *Handler) html(c *gin.Context, code int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error("render template", zap.String("template", name), zap.Error(err))
		response.InternalError(c, err)
		return
	}
	c.Data(code, htmlContentType, buf.Bytes())
}
