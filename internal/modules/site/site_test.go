package site

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/strategiq/swot/internal/config"
	"github.com/strategiq/swot/internal/middleware"
	"github.com/strategiq/swot/internal/models"
	"github.com/strategiq/swot/internal/modules/analysis"
	"github.com/strategiq/swot/internal/pkg/pdfcache"
	redisc "github.com/strategiq/swot/internal/pkg/redis"
	"github.com/strategiq/swot/internal/pkg/runstore"
	"github.com/strategiq/swot/internal/pkg/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	err   error
	calls atomic.Int32
}

func (f *fakeRunner) Run(_ context.Context, req analysis.Request, report analysis.Reporter) (*models.SwotAnalysis, error) {
	f.calls.Add(1)
	report(analysis.ToolMessage("search"))
	if f.err != nil {
		return nil, f.err
	}
	return &models.SwotAnalysis{
		PrimaryEntity:      req.Primary,
		ComparisonEntities: req.Comparisons,
		Strengths:          []string{"Strong brand"},
		Weaknesses:         []string{"High costs"},
		Opportunities:      []string{"New markets"},
		Threats:            []string{"Price war"},
		Analysis:           "Acme is **well placed**.",
	}, nil
}

type fakeHistory struct {
	mu       sync.Mutex
	sessions []string
}

func (f *fakeHistory) Record(_ context.Context, sessionID string, a *models.SwotAnalysis) (*models.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
	return &models.AnalysisRecord{SessionID: sessionID, PrimaryEntity: a.PrimaryEntity}, nil
}

type fakeArchiver struct {
	mu      sync.Mutex
	uploads []string
}

func (f *fakeArchiver) UploadAsync(_ context.Context, sessionID, fingerprint string, _ []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, sessionID+"/"+fingerprint)
}

type harness struct {
	t        *testing.T
	engine   *gin.Engine
	handler  *Handler
	cache    *pdfcache.Cache
	runner   *fakeRunner
	history  *fakeHistory
	archiver *fakeArchiver
	renders  atomic.Int32
	cookie   *http.Cookie
	rdb      *redis.Client
}

func newHarness(t *testing.T, runner *fakeRunner) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessions, err := session.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	h := &harness{
		t:        t,
		rdb:      rdb,
		cache:    pdfcache.New(pdfcache.Options{TTL: time.Minute}),
		runner:   runner,
		history:  &fakeHistory{},
		archiver: &fakeArchiver{},
	}
	h.handler = NewHandler(Options{
		Runs:     runstore.New(redisc.Wrap(rdb), time.Hour),
		Cache:    h.cache,
		Runner:   runner,
		Sessions: sessions,
		History:  h.history,
		Archiver: h.archiver,
		Input: config.InputLimitsConfig{
			MaxPrimaryLength:    100,
			MaxComparisonLength: 200,
			MaxComparisonCount:  3,
		},
		Render: func(_ context.Context, a models.SwotAnalysis) ([]byte, error) {
			h.renders.Add(1)
			return []byte("%PDF-" + a.PrimaryEntity), nil
		},
		Now: func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) },
	})

	h.engine = gin.New()
	h.engine.Use(middleware.Session(sessions, zap.NewNop()))
	h.handler.RegisterRoutes(h.engine)
	h.handler.RegisterCacheRoutes(h.engine.Group("/api"))
	return h
}

func (h *harness) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	h.t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}

	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			h.cookie = c
		}
	}
	return w
}

func (h *harness) analyze(primary, comparisons string) *httptest.ResponseRecorder {
	h.t.Helper()
	w := h.do(http.MethodPost, "/analyze", url.Values{
		"primary_entity":      {primary},
		"comparison_entities": {comparisons},
	})
	h.handler.Wait()
	return w
}

func TestIndex(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})
	w := h.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `hx-post="/analyze"`)
	require.Contains(t, w.Body.String(), `maxlength="100"`)
}

func TestAnalyze_RejectsBadInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})

	w := h.analyze("  ", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = h.analyze("Acme", "a, b, c, d")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, h.runner.calls.Load())
	require.Nil(t, h.cookie)
}

func TestAnalyze_StatusAndResult(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})

	w := h.analyze("Acme", "Globex, Initech")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Body.String())
	require.NotNil(t, h.cookie)

	w = h.do(http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, `<ol id="status-timeline" hx-swap-oob="true">`)
	require.Contains(t, body, AnalyzingMessage)
	require.Contains(t, body, "Using tool: search")
	require.Contains(t, body, AnalysisCompleteMessage)
	require.Contains(t, body, `hx-get="/result"`)
	require.Less(t, strings.Index(body, AnalyzingMessage), strings.Index(body, AnalysisCompleteMessage))

	w = h.do(http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Body.String())

	w = h.do(http.MethodGet, "/result", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = w.Body.String()
	require.Contains(t, body, "SWOT Analysis: Acme")
	require.Contains(t, body, "Compared with: Globex, Initech")
	require.Contains(t, body, "<strong>well placed</strong>")
	require.Contains(t, body, "Strengths (1)")

	require.Len(t, h.history.sessions, 1)
}

func TestAnalyze_Failure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{err: errors.New("provider exploded")})
	h.analyze("Acme", "")

	w := h.do(http.MethodGet, "/status", nil)
	body := w.Body.String()
	require.Contains(t, body, "Unexpected error: provider exploded")
	require.Contains(t, body, "is-failed")
	require.NotContains(t, body, `hx-get="/result"`)

	w = h.do(http.MethodGet, "/download-pdf", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, msgNotComplete, w.Body.String())
	require.Empty(t, h.history.sessions)
}

// failResultWrites makes every SET on a run result key fail.
type failResultWrites struct{}

func (failResultWrites) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failResultWrites) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		args := cmd.Args()
		if cmd.Name() == "set" && len(args) > 1 && strings.HasSuffix(fmt.Sprint(args[1]), ":result") {
			err := errors.New("result store unavailable")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failResultWrites) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestAnalyze_ResultStoreFailureMarksRunFailed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})
	h.rdb.AddHook(failResultWrites{})
	h.analyze("Acme", "")

	claims, err := h.handler.sessions.Parse(h.cookie.Value)
	require.NoError(t, err)

	run, err := h.handler.runs.Get(context.Background(), claims.AnalysisID)
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, runstore.RunFailed, run.Status)
	require.Contains(t, run.Error, "result store unavailable")

	w := h.do(http.MethodGet, "/status", nil)
	require.Contains(t, w.Body.String(), "Unexpected error: result store unavailable")
	require.Empty(t, h.history.sessions)
}

func TestStatusAndResult_WithoutSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})

	w := h.do(http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Body.String())

	w = h.do(http.MethodGet, "/result", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "No analysis result yet")
}

func TestDownloadPDF_NoSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})
	w := h.do(http.MethodGet, "/download-pdf", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, msgNoAnalysis, w.Body.String())
}

func TestDownloadPDF_CachesRenderedReport(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})
	h.analyze("Acme", "Globex")

	w := h.do(http.MethodGet, "/download-pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Equal(t, "MISS", w.Header().Get(HeaderPDFCache))
	require.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	require.Equal(t, `attachment; filename="swot-Acme-vs-Globex-2025-03-14.pdf"`, w.Header().Get("Content-Disposition"))
	require.Equal(t, "%PDF-Acme", w.Body.String())

	w = h.do(http.MethodGet, "/download-pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "HIT", w.Header().Get(HeaderPDFCache))
	require.Equal(t, "%PDF-Acme", w.Body.String())

	require.EqualValues(t, 1, h.renders.Load())
	require.Len(t, h.archiver.uploads, 1)
}

func TestDownloadPDF_RenderTimeout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})
	h.handler.pdfTimeout = 10 * time.Millisecond
	h.handler.render = func(ctx context.Context, _ models.SwotAnalysis) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	h.analyze("Acme", "")

	w := h.do(http.MethodGet, "/download-pdf", nil)
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	require.Zero(t, h.cache.Stats().TotalEntries)
}

func TestAnalyze_InvalidatesPreviousReport(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})
	h.analyze("Acme", "")
	h.do(http.MethodGet, "/download-pdf", nil)
	require.Equal(t, 1, h.cache.Stats().TotalEntries)

	first := h.cookie.Value
	h.analyze("Acme", "")
	require.NotEqual(t, first, h.cookie.Value)
	require.Zero(t, h.cache.Stats().TotalEntries)

	w := h.do(http.MethodGet, "/download-pdf", nil)
	require.Equal(t, "MISS", w.Header().Get(HeaderPDFCache))
}

func TestCacheEndpoints(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})
	h.analyze("Acme", "")
	h.do(http.MethodGet, "/download-pdf", nil)

	w := h.do(http.MethodGet, "/api/pdf-cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total_entries":1`)
	require.Contains(t, w.Body.String(), `"ttl_seconds":60`)

	w = h.do(http.MethodDelete, "/api/pdf-cache", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"cleared":1}`, w.Body.String())
	require.Zero(t, h.cache.Stats().TotalEntries)

	w = h.do(http.MethodGet, "/api/ping", nil)
	require.JSONEq(t, `{"data":"pong"}`, w.Body.String())
}

func TestProgressReporter_StopsOnCancel(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeRunner{})
	h.handler.delayMin = time.Hour
	h.handler.delayMax = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		h.handler.progress(ctx, "s1", h.handler.log)("never published")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not return after cancellation")
	}

	msgs, err := h.handler.runs.Messages(context.Background(), "s1")
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestStatusDelay_WithinBounds(t *testing.T) {
	t.Parallel()

	h := &Handler{delayMin: time.Second, delayMax: 3 * time.Second}
	for range 100 {
		d := h.statusDelay()
		require.GreaterOrEqual(t, d, time.Second)
		require.LessOrEqual(t, d, 3*time.Second)
	}
}
